package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListingOpenAndStatus(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		sold       bool
		now        time.Time
		wantOpen   bool
		wantStatus string
	}{
		{name: "before deadline", now: deadline.Add(-time.Minute), wantOpen: true, wantStatus: "active"},
		{name: "at deadline", now: deadline, wantOpen: true, wantStatus: "active"},
		{name: "past deadline", now: deadline.Add(time.Second), wantOpen: false, wantStatus: "closed"},
		{name: "sold", sold: true, now: deadline.Add(-time.Hour), wantOpen: false, wantStatus: "sold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := Listing{ClosingTime: deadline, Sold: tt.sold}
			require.Equal(t, tt.wantOpen, listing.Open(tt.now))
			require.Equal(t, tt.wantStatus, listing.Status(tt.now))
		})
	}
}

func TestActorCanManage(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		owner string
		want  bool
	}{
		{name: "owner", actor: Actor{ID: "u1"}, owner: "u1", want: true},
		{name: "stranger", actor: Actor{ID: "u2"}, owner: "u1", want: false},
		{name: "admin", actor: Actor{ID: "ops", Role: RoleAdmin}, owner: "u1", want: true},
		{name: "system", actor: SystemActor, owner: "u1", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.actor.CanManage(tt.owner))
		})
	}
}
