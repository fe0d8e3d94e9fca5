package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/pipeline"
	"github.com/umputun/eventscope/pkg/session"
	"github.com/umputun/eventscope/pkg/telegram"
)

// msgPendingLost is sent when a confirmation reply arrives after the pending
// data expired or was never stored
const msgPendingLost = "The confirmation data was lost or expired. Please send the event details again."

// webhookHandler receives bot updates. Replies to a pending confirmation are
// routed to the confirmation flow, everything else goes through the pipeline.
// The handler always answers 200, telegram retries non-2xx responses and a
// processing failure is reported to the user in chat instead.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		RenderError(w, r, fmt.Errorf("decode update: %w", err), http.StatusBadRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		RenderJSON(w, r, http.StatusOK, rest.JSON{"ok": true})
		return
	}

	ctx := r.Context()
	userID := fmt.Sprintf("%d", msg.From.ID)
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	// a reply to an outstanding confirmation takes precedence over new input;
	// a confirmation-shaped reply with nothing pending means the confirmation
	// expired, running the pipeline over "yes" would make no sense
	if text != "" && len(msg.Photo) == 0 && session.IsConfirmationResponse(text) {
		_, ok, err := s.sessions.GetPending(ctx, userID, chatID)
		if err != nil {
			lgr.Printf("[WARN] failed to check pending confirmation for %s: %v", userID, err)
		}
		if ok {
			s.handleConfirmation(ctx, userID, chatID, text)
		} else {
			s.reply(ctx, chatID, msgPendingLost)
		}
		RenderJSON(w, r, http.StatusOK, rest.JSON{"ok": true})
		return
	}

	input := pipeline.Input{Raw: text, UserID: userID, ChatID: chatID, Source: "telegram"}
	if photo, ok := telegram.LargestPhoto(msg.Photo); ok {
		input.ImageFileID = photo.FileID
		if caption := strings.TrimSpace(msg.Caption); caption != "" {
			input.Raw = caption
		}
	}

	if input.Raw == "" && input.ImageFileID == "" {
		s.reply(ctx, chatID, "Please send me event details as text, a link, or a flyer photo.")
		RenderJSON(w, r, http.StatusOK, rest.JSON{"ok": true})
		return
	}

	outcome := s.pipeline.Run(ctx, input)
	s.replyForOutcome(ctx, userID, chatID, outcome)
	RenderJSON(w, r, http.StatusOK, rest.JSON{"ok": true})
}

// replyForOutcome translates a pipeline outcome into a chat reply, storing the
// pending confirmation when the gate held the extraction back
func (s *Server) replyForOutcome(ctx context.Context, userID string, chatID int64, outcome pipeline.Outcome) {
	switch outcome.Status {
	case pipeline.StatusCompleted:
		s.reply(ctx, chatID, savedMessage(outcome.Save))

	case pipeline.StatusAwaitingConfirmation:
		pending := session.Pending{
			Candidate:       outcome.Result.Candidate,
			ValidationScore: outcome.Result.ValidationScore,
			Reasons:         outcome.Decision.Reasons,
		}
		if outcome.Result.OCR != nil {
			pending.OCRConfidence = outcome.Result.OCR.Confidence
		}
		if err := s.sessions.StorePending(ctx, userID, chatID, pending); err != nil {
			lgr.Printf("[ERROR] failed to store pending confirmation for %s: %v", userID, err)
			s.reply(ctx, chatID, "Something went wrong while preparing the confirmation. Please try again.")
			return
		}
		s.reply(ctx, chatID, outcome.Decision.Message)

	case pipeline.StatusAwaitingUserInput:
		s.reply(ctx, chatID, outcome.Result.UserMessage)

	case pipeline.StatusSkipped:
		s.reply(ctx, chatID, "I couldn't recognize event details in that message. "+
			"Try sending the event text, a link, or a flyer photo.")

	case pipeline.StatusFailed:
		// the raw error stays in the log, users get a generic message
		lgr.Printf("[WARN] run %s failed at %s for user %s: %v", outcome.RunID, outcome.Stage, userID, outcome.Err)
		s.reply(ctx, chatID, failureMessage(outcome.Stage))
	}
}

// handleConfirmation processes a reply to a pending confirmation
func (s *Server) handleConfirmation(ctx context.Context, userID string, chatID int64, text string) {
	resp := session.ParseResponse(text)

	switch resp.Kind {
	case session.ResponseConfirm:
		confirmed, err := s.sessions.ConfirmAndRemove(ctx, userID, chatID)
		if err != nil {
			lgr.Printf("[WARN] confirm failed for %s: %v", userID, err)
			s.reply(ctx, chatID, msgPendingLost)
			return
		}
		_, saveResult, err := s.pipeline.SaveCandidate(ctx, confirmed.Candidate, userID)
		if err != nil {
			lgr.Printf("[WARN] save after confirmation failed for %s: %v", userID, err)
			s.reply(ctx, chatID, "Saving the event failed. Please try again in a moment.")
			return
		}
		s.reply(ctx, chatID, savedMessage(saveResult))

	case session.ResponseCancel:
		if err := s.sessions.Cancel(ctx, userID, chatID); err != nil {
			lgr.Printf("[WARN] cancel failed for %s: %v", userID, err)
		}
		s.reply(ctx, chatID, "❌ Event discarded. Send me another event anytime.")

	case session.ResponseEdit:
		updated, err := s.sessions.ApplyEdit(ctx, userID, chatID, resp.Field, resp.Value)
		if err != nil {
			lgr.Printf("[WARN] edit failed for %s: %v", userID, err)
			s.reply(ctx, chatID, fmt.Sprintf("I couldn't apply that edit: %v. "+
				"Use 'Edit [title|date|location|description]: [new value]'.", err))
			return
		}
		s.reply(ctx, chatID, editedMessage(updated.Candidate, resp.Field))

	default:
		s.reply(ctx, chatID, "I didn't understand that. Reply with 'Yes' to save, "+
			"'Edit [field]: [new value]' to change something, or 'Cancel' to discard.")
	}
}

// reply sends a message and logs failures, delivery problems never fail the
// webhook response
func (s *Server) reply(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		lgr.Printf("[WARN] failed to send message to chat %d: %v", chatID, err)
	}
}

// savedMessage renders the success reply for a completed save
func savedMessage(save domain.SaveResult) string {
	var sb strings.Builder
	if save.SeriesID != "" {
		fmt.Fprintf(&sb, "✅ Saved *%s*: %d of %d sessions created.\n",
			save.Title, save.CreatedSessions, save.TotalSessions)
		if save.CreatedSessions < save.TotalSessions {
			sb.WriteString("⚠️ Some sessions could not be created, check the database.\n")
		}
	} else {
		fmt.Fprintf(&sb, "✅ Saved *%s*.\n", save.Title)
	}
	if save.URL != "" {
		sb.WriteString(save.URL)
	}
	return strings.TrimSpace(sb.String())
}

// editedMessage renders the updated details after a field edit and asks for
// the final word
func editedMessage(candidate domain.EventCandidate, field string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✏️ Updated %s.\n\n", field)
	fmt.Fprintf(&sb, "*Title:* %s\n", valueOrDash(candidate.Title))
	fmt.Fprintf(&sb, "*Date(s):* %s\n", valueOrDash(candidate.Date))
	fmt.Fprintf(&sb, "*Location:* %s\n", valueOrDash(candidate.Location))
	sb.WriteString("\nReply with 'Yes' to save, another edit, or 'Cancel' to discard.")
	return sb.String()
}

func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// failureMessage maps the failed pipeline stage to a user-facing explanation
func failureMessage(stage string) string {
	switch stage {
	case pipeline.StageProcess:
		return "I couldn't extract event details from that. Could you rephrase or send a clearer source?"
	case pipeline.StagePersist:
		return "The event was extracted but saving it failed. Please try again in a moment."
	default:
		return "Something went wrong while processing your message. Please try again."
	}
}
