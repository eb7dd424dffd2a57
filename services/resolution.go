package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"result-verification-system/models"

	"gorm.io/datatypes"
)

// ResolutionKind names an organizer strategy for closing a dispute.
type ResolutionKind string

const (
	ResolutionApproveOriginal ResolutionKind = "approve_original"
	ResolutionApproveDispute  ResolutionKind = "approve_dispute"
	ResolutionCustomResult    ResolutionKind = "custom_result"
	ResolutionDismiss         ResolutionKind = "dismiss"
)

// Resolution is one of ApproveOriginal, ApproveDispute, CustomResult or
// DismissDispute. The set is closed.
type Resolution interface {
	Kind() ResolutionKind
	// Validate checks the strategy's required inputs against the dispute.
	Validate(d *models.Dispute) error
	resolution()
}

// ApproveOriginal upholds the submitter's result.
type ApproveOriginal struct {
	Notes string
}

// ApproveDispute accepts the opponent's counter-claim.
type ApproveDispute struct {
	Notes string
}

// CustomResult replaces both claims with an organizer-supplied result.
type CustomResult struct {
	Payload datatypes.JSON
	Notes   string
}

// DismissDispute throws the dispute out and sends the submission back to the
// confirmation flow.
type DismissDispute struct {
	Notes string
}

func (ApproveOriginal) Kind() ResolutionKind { return ResolutionApproveOriginal }
func (ApproveDispute) Kind() ResolutionKind  { return ResolutionApproveDispute }
func (CustomResult) Kind() ResolutionKind    { return ResolutionCustomResult }
func (DismissDispute) Kind() ResolutionKind  { return ResolutionDismiss }

func (ApproveOriginal) resolution() {}
func (ApproveDispute) resolution()  {}
func (CustomResult) resolution()    {}
func (DismissDispute) resolution()  {}

func (ApproveOriginal) Validate(*models.Dispute) error { return nil }

func (ApproveDispute) Validate(d *models.Dispute) error {
	if !d.HasCounterClaim() {
		return &ValidationError{Field: "disputed_result_payload", Message: "dispute carries no counter-claim to approve"}
	}
	return nil
}

func (r CustomResult) Validate(*models.Dispute) error {
	trimmed := bytes.TrimSpace(r.Payload)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "{}" {
		return &ValidationError{Field: "custom_payload", Message: "custom result requires a payload"}
	}
	if !json.Valid(trimmed) {
		return &ValidationError{Field: "custom_payload", Message: "custom result must be valid JSON"}
	}
	return nil
}

func (DismissDispute) Validate(*models.Dispute) error { return nil }

func resolutionNotes(r Resolution) string {
	switch v := r.(type) {
	case ApproveOriginal:
		return v.Notes
	case ApproveDispute:
		return v.Notes
	case CustomResult:
		return v.Notes
	case DismissDispute:
		return v.Notes
	}
	return ""
}

// ParseResolution maps a wire resolution type onto its strategy.
func ParseResolution(kind, notes string, payload json.RawMessage) (Resolution, error) {
	switch ResolutionKind(strings.TrimSpace(kind)) {
	case ResolutionApproveOriginal:
		return ApproveOriginal{Notes: notes}, nil
	case ResolutionApproveDispute:
		return ApproveDispute{Notes: notes}, nil
	case ResolutionCustomResult:
		r := CustomResult{Payload: datatypes.JSON(payload), Notes: notes}
		if err := r.Validate(nil); err != nil {
			return nil, err
		}
		return r, nil
	case ResolutionDismiss:
		return DismissDispute{Notes: notes}, nil
	}
	return nil, &ValidationError{Field: "resolution_type", Message: fmt.Sprintf("unknown resolution type %q", kind)}
}

// ParseOutcome reads the winner of a result payload from the submitting
// team's point of view. ok is false when the payload does not name a winner
// or a draw.
func ParseOutcome(payload []byte, submitterTeamID, opponentTeamID string) (Outcome, bool) {
	var result struct {
		WinnerTeamID string `json:"winner_team_id"`
		Draw         bool   `json:"draw"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return OutcomeDraw, false
	}
	switch {
	case result.Draw:
		return OutcomeDraw, true
	case result.WinnerTeamID == "":
		return OutcomeDraw, false
	case result.WinnerTeamID == submitterTeamID:
		return OutcomeWin, true
	case result.WinnerTeamID == opponentTeamID:
		return OutcomeLoss, true
	}
	return OutcomeDraw, false
}
