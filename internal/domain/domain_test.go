package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActor_Can(t *testing.T) {
	reader := Actor{UserID: 1, Role: RoleReader}
	librarian := Actor{UserID: 2, Role: RoleLibrarian}
	admin := Actor{UserID: 3, Role: RoleAdministrator}

	tests := []struct {
		name    string
		actor   Actor
		caps    Capability
		ownerID int64
		want    bool
	}{
		{"reader owns record", reader, CapabilitySelf, 1, true},
		{"reader on someone else's", reader, CapabilitySelf | CapabilityStaff, 9, false},
		{"librarian as staff", librarian, CapabilitySelf | CapabilityStaff, 9, true},
		{"librarian is not admin", librarian, CapabilityAdmin, 9, false},
		{"admin is staff", admin, CapabilityStaff, 9, true},
		{"admin", admin, CapabilityAdmin, 9, true},
		{"self only excludes staff", librarian, CapabilitySelf, 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.Can(tt.caps, tt.ownerID))
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleReader.Valid())
	assert.True(t, RoleAdministrator.Valid())
	assert.False(t, Role("guest").Valid())
}

func TestIsLate(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	loan := &Loan{DueDate: now.Add(-time.Minute)}
	assert.True(t, IsLate(loan, now))

	loan.DueDate = now
	assert.False(t, IsLate(loan, now))

	returned := now
	loan.DueDate = now.Add(-48 * time.Hour)
	loan.ReturnDate = &returned
	assert.False(t, IsLate(loan, now))
	assert.False(t, NewLoanView(loan, now).Late)
}

func TestReservation_PromoteAndExpire(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	r := &Reservation{Status: ReservationStatusActive}
	r.Promote(now, 48*time.Hour)

	assert.Equal(t, ReservationStatusAwaitingPickup, r.Status)
	require.NotNil(t, r.ExpiresAt)
	assert.Equal(t, now.Add(48*time.Hour), *r.ExpiresAt)
	assert.True(t, r.IsOpen())

	assert.False(t, r.PickupExpired(now.Add(47*time.Hour)))
	assert.True(t, r.PickupExpired(now.Add(49*time.Hour)))
}

func TestMapGatewayStatus(t *testing.T) {
	assert.Equal(t, PaymentStatusApproved, MapGatewayStatus(GatewayStatusPaid))
	assert.Equal(t, PaymentStatusApproved, MapGatewayStatus(GatewayStatusAuthorized))
	assert.Equal(t, PaymentStatusRejected, MapGatewayStatus(GatewayStatusDeclined))
	assert.Equal(t, PaymentStatusCancelled, MapGatewayStatus(GatewayStatusCanceled))
	assert.Equal(t, PaymentStatusPending, MapGatewayStatus(GatewayStatusInAnalysis))
	assert.Equal(t, PaymentStatusPending, MapGatewayStatus("SOMETHING_NEW"))

	assert.True(t, PaymentStatusRejected.IsTerminal())
	assert.False(t, PaymentStatusPending.IsTerminal())
}

func TestRawPayload(t *testing.T) {
	p := NewRawPayload(WebhookNotification{ID: "TXN1", Status: "PAID"})
	assert.JSONEq(t, `{"id":"TXN1","status":"PAID"}`, string(p))

	v, err := p.Value()
	require.NoError(t, err)
	assert.IsType(t, "", v)

	var scanned RawPayload
	require.NoError(t, scanned.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, string(scanned))

	empty, err := RawPayload(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestItem_Available(t *testing.T) {
	item := &Item{TotalCopies: 2}
	assert.Equal(t, 2, item.Available(0))
	assert.Equal(t, 0, item.Available(2))
}
