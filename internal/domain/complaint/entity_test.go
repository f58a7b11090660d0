package complaint_test

import (
	"testing"
	"time"

	"github.com/heroncosmo/plano-junto-sub000/internal/domain/complaint"
)

func TestDeadlineWindows(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &complaint.Complaint{
		Status:                complaint.StatusPending,
		CreatedAt:             t0,
		AdminResponseDeadline: t0.Add(48 * time.Hour),
		InterventionDeadline:  t0.Add(96 * time.Hour),
	}

	if c.IsOverdue(t0.Add(47 * time.Hour)) {
		t.Fatal("not overdue before the response deadline")
	}
	if !c.IsOverdue(t0.Add(49*time.Hour)) || c.IsReadyForIntervention(t0.Add(49*time.Hour)) {
		t.Fatal("expected overdue but not intervention-ready at T0+49h")
	}
	if !c.IsOverdue(t0.Add(97*time.Hour)) || !c.IsReadyForIntervention(t0.Add(97*time.Hour)) {
		t.Fatal("expected both windows open at T0+97h")
	}

	// Terminal cases never report as actionable
	c.Status = complaint.StatusResolved
	if c.IsOverdue(t0.Add(97*time.Hour)) || c.IsReadyForIntervention(t0.Add(97*time.Hour)) {
		t.Fatal("terminal complaint must not be overdue or intervention-ready")
	}
}
