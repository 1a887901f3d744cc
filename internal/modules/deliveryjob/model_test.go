// README: Pure tests for the delivery job state graph.
package deliveryjob

import (
	"testing"

	"soko/internal/workflow"
)

func TestTransitions(t *testing.T) {
	cases := []struct {
		name  string
		from  Status
		to    Status
		actor workflow.Actor
		want  bool
	}{
		{"admin assigns open job", StatusOpen, StatusAccepted, workflow.ActorAdmin, true},
		{"agency accepts open job", StatusOpen, StatusAccepted, workflow.ActorAgency, true},
		{"admin cancels open job", StatusOpen, StatusCancelled, workflow.ActorAdmin, true},
		{"agency cannot cancel", StatusOpen, StatusCancelled, workflow.ActorAgency, false},
		{"agency picks up accepted job", StatusAccepted, StatusPickedUp, workflow.ActorAgency, true},
		{"admin cannot pick up", StatusAccepted, StatusPickedUp, workflow.ActorAdmin, false},
		{"picked up to in transit", StatusPickedUp, StatusInTransit, workflow.ActorAgency, true},
		{"in transit to delivered", StatusInTransit, StatusDelivered, workflow.ActorAgency, true},
		{"admin may force delivered", StatusInTransit, StatusDelivered, workflow.ActorAdmin, true},
		{"no skipping pickup", StatusAccepted, StatusDelivered, workflow.ActorAgency, false},
		{"no skipping transit", StatusPickedUp, StatusDelivered, workflow.ActorAgency, false},
		{"delivered is terminal", StatusDelivered, StatusCancelled, workflow.ActorAdmin, false},
		{"cancelled is terminal", StatusCancelled, StatusAccepted, workflow.ActorAdmin, false},
		{"no going backwards", StatusInTransit, StatusPickedUp, workflow.ActorAgency, false},
		{"admin cancels in-flight job", StatusInTransit, StatusCancelled, workflow.ActorAdmin, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Transitions.Can(tc.from, tc.to, tc.actor); got != tc.want {
				t.Errorf("Can(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.actor, got, tc.want)
			}
		})
	}
}
