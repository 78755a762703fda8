package service

import (
	"time"

	"campus-events/backend/internal/model"
	pkgerrors "campus-events/backend/pkg/errors"
)

// ── event lifecycle errors ──

var (
	ErrEventCreateForbidden   = pkgerrors.New(pkgerrors.ErrAuthorization, "your role cannot create events")
	ErrEventNotCreator        = pkgerrors.New(pkgerrors.ErrAuthorization, "only the event creator can submit it")
	ErrEventReviewForbidden   = pkgerrors.New(pkgerrors.ErrAuthorization, "only the innovation cell can review events")
	ErrEventManageForbidden   = pkgerrors.New(pkgerrors.ErrAuthorization, "only the creator or the innovation cell can modify this event")
	ErrInvalidEventTransition = pkgerrors.New(pkgerrors.ErrInvalidState, "event status cannot change this way")
)

// lifecycleAction a status transition a caller can request
type lifecycleAction int

const (
	actionSubmit lifecycleAction = iota + 1
	actionApprove
	actionReject
)

// initialEventStatus status of a newly created event.
// Only roles that may self-publish skip review.
func initialEventStatus(role model.Role, draft bool) model.EventStatus {
	switch {
	case draft:
		return model.EventStatusDraft
	case role.CanSelfPublishEvents():
		return model.EventStatusApproved
	default:
		return model.EventStatusPending
	}
}

// nextEventStatus checks the actor first, then the current state, and
// returns the status the action leads to. It never mutates the event.
func nextEventStatus(event *model.Event, actor Actor, action lifecycleAction) (model.EventStatus, error) {
	switch action {
	case actionSubmit:
		if event.CreatorID != actor.UserID {
			return "", ErrEventNotCreator
		}
		if event.Status != model.EventStatusDraft {
			return "", ErrInvalidEventTransition
		}
		if actor.Role.CanSelfPublishEvents() {
			return model.EventStatusApproved, nil
		}
		return model.EventStatusPending, nil

	case actionApprove, actionReject:
		if !actor.Role.CanApproveEvents() {
			return "", ErrEventReviewForbidden
		}
		if event.Status != model.EventStatusPending {
			return "", ErrInvalidEventTransition
		}
		if action == actionApprove {
			return model.EventStatusApproved, nil
		}
		return model.EventStatusRejected, nil
	}
	return "", ErrInvalidEventTransition
}

// actionForStatus maps an explicitly requested status onto a lifecycle
// action. noop is true when the event already has that status.
func actionForStatus(current, requested model.EventStatus) (action lifecycleAction, noop bool, err error) {
	if requested == current {
		return 0, true, nil
	}
	switch requested {
	case model.EventStatusPending:
		return actionSubmit, false, nil
	case model.EventStatusApproved:
		if current == model.EventStatusDraft {
			return actionSubmit, false, nil
		}
		return actionApprove, false, nil
	case model.EventStatusRejected:
		return actionReject, false, nil
	case model.EventStatusDraft:
		return 0, false, ErrInvalidEventTransition
	}
	return 0, false, ErrEventStatusInvalid
}

// applyEventStatus writes target and the review stamp onto the event
func applyEventStatus(event *model.Event, actor Actor, target model.EventStatus, comment string, now time.Time) {
	event.Status = target
	switch target {
	case model.EventStatusApproved, model.EventStatusRejected:
		event.ReviewedBy = &actor.UserID
		event.ReviewedAt = &now
		if target == model.EventStatusRejected {
			event.ReviewComment = comment
		} else {
			event.ReviewComment = ""
		}
	}
}

// canManageEvent creator or a role allowed to manage any event
func canManageEvent(event *model.Event, actor Actor) bool {
	return actor.Role.CanManageAnyEvent() || event.CreatorID == actor.UserID
}

// canViewEvent approved events are public; others only to their creator
// and roles that oversee every event
func canViewEvent(event *model.Event, actor Actor) bool {
	return event.Status == model.EventStatusApproved ||
		event.CreatorID == actor.UserID ||
		actor.Role.CanViewAllEvents()
}
