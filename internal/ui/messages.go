package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"travelcrm/internal/bookingform"
	"travelcrm/internal/crm"
	"travelcrm/internal/pipeline"
)

// mirrorUpdatedMsg arrives after the mirror replaced a collection.
type mirrorUpdatedMsg struct {
	collection crm.Collection
}

type setupFailedMsg struct {
	err error
}

type editAppliedMsg struct {
	edit       pipeline.Edit
	transition crm.Transition
	err        error
}

type queryCreatedMsg struct {
	id  string
	err error
}

type promotionDoneMsg struct {
	leadID string
	err    error
}

type bookingDoneMsg struct {
	result pipeline.BookingResult
	err    error
}

type commentAddedMsg struct {
	added bool
	err   error
}

// Writes run outside the update loop and report back with a message.

func applyEditCmd(ctx context.Context, ctrl *pipeline.Controller, edit pipeline.Edit) tea.Cmd {
	return func() tea.Msg {
		tr, err := ctrl.ApplyEdit(ctx, edit)
		return editAppliedMsg{edit: edit, transition: tr, err: err}
	}
}

func createQueryCmd(ctx context.Context, ctrl *pipeline.Controller, draft pipeline.QueryDraft) tea.Cmd {
	return func() tea.Msg {
		id, err := ctrl.CreateQuery(ctx, draft)
		return queryCreatedMsg{id: id, err: err}
	}
}

func submitPromotionCmd(ctx context.Context, ctrl *pipeline.Controller, draft pipeline.LeadDraft) tea.Cmd {
	return func() tea.Msg {
		id, err := ctrl.SubmitPromotion(ctx, draft)
		return promotionDoneMsg{leadID: id, err: err}
	}
}

func submitBookingCmd(ctx context.Context, ctrl *pipeline.Controller, form *bookingform.Form) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.SubmitBooking(ctx, form)
		return bookingDoneMsg{result: res, err: err}
	}
}

func addCommentCmd(ctx context.Context, ctrl *pipeline.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		added, err := ctrl.AddComment(ctx, text)
		return commentAddedMsg{added: added, err: err}
	}
}
