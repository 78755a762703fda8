package service

import "campus-events/backend/internal/model"

// DeriveTeamStatus computes the composite status of a team from its
// invitee entries and timestamps. The stored status column is only a cache
// of this value.
//
//   - verified:   verification timestamp set
//   - registered: registration timestamp set
//   - ready:      every member accepted, headcount within the event's team
//     size, and an accepted mentor when the event requires one
//   - forming:    anything else
func DeriveTeamStatus(team *model.Team, event *model.Event) model.TeamStatus {
	if team.VerifiedAt != nil {
		return model.TeamStatusVerified
	}
	if team.RegisteredAt != nil {
		return model.TeamStatusRegistered
	}
	if event == nil {
		return model.TeamStatusForming
	}

	for _, m := range team.Members {
		if m.Status != model.InviteStatusAccepted {
			return model.TeamStatusForming
		}
	}

	n := team.Headcount()
	if n < event.TeamSizeMin || n > event.TeamSizeMax {
		return model.TeamStatusForming
	}
	if event.RequiresMentor && !team.MentorAccepted() {
		return model.TeamStatusForming
	}
	return model.TeamStatusReady
}
