package mongo

import (
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/points/account"
)

func TestApplyDocsGuardsDecrements(t *testing.T) {
	mut := account.NewMutation().
		Increment(account.FieldFreePoints, -5).
		Increment(account.FieldPurchasedPoints, 3)

	filter, update := applyDocs("u1", mut)

	if filter["_id"] != "u1" {
		t.Errorf("filter _id: got %v", filter["_id"])
	}
	guard, ok := filter["free_points"].(bson.M)
	if !ok || guard["$gte"] != int64(5) {
		t.Errorf("free_points guard: got %v", filter["free_points"])
	}
	ceiling, ok := filter["purchased_points"].(bson.M)
	if !ok || ceiling["$lte"] != int64(math.MaxInt64-3) {
		t.Errorf("purchased_points overflow guard: got %v", filter["purchased_points"])
	}

	inc, ok := update["$inc"].(bson.M)
	if !ok {
		t.Fatalf("$inc missing: %v", update)
	}
	if inc["free_points"] != int64(-5) || inc["purchased_points"] != int64(3) {
		t.Errorf("$inc: got %v", inc)
	}
}

func TestApplyDocsServerTimestamp(t *testing.T) {
	mut := account.NewMutation().ServerTimestamp(account.FieldLastClaimAt)

	_, update := applyDocs("u1", mut)

	if _, ok := update["$inc"]; ok {
		t.Error("timestamp-only mutation must not carry $inc")
	}
	cd, ok := update["$currentDate"].(bson.M)
	if !ok {
		t.Fatalf("$currentDate missing: %v", update)
	}
	if cd["last_claim_at"] != true || cd["updated_at"] != true {
		t.Errorf("$currentDate: got %v", cd)
	}
}

func TestApplyDocsClaimPrecondition(t *testing.T) {
	cutoff := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	mut := account.NewMutation().
		Increment(account.FieldFreePoints, 10).
		ServerTimestamp(account.FieldLastClaimAt).
		RequireNotAfter(account.FieldLastClaimAt, cutoff)

	filter, _ := applyDocs("u1", mut)

	and, ok := filter["$and"].(bson.A)
	if !ok || len(and) != 1 {
		t.Fatalf("$and: got %v", filter["$and"])
	}
	or, ok := and[0].(bson.M)["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("$or: got %v", and[0])
	}
	if v, present := or[0].(bson.M)["last_claim_at"]; !present || v != nil {
		t.Errorf("unset branch: got %v", or[0])
	}
	lte, ok := or[1].(bson.M)["last_claim_at"].(bson.M)
	if !ok || lte["$lte"] != cutoff {
		t.Errorf("cutoff branch: got %v", or[1])
	}
}
