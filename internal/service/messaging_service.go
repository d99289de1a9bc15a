package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/logger"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

const (
	conversationsPath = "/crud/conversaciones/"
	messagesPath      = "/crud/mensajes/"

	emptyMessage        = "El mensaje no puede estar vacío."
	missingParticipants = "Faltan datos para crear la conversación (tutor/estudiante)"
)

// MessagingConfig tunes the messaging service.
type MessagingConfig struct {
	ProfileConcurrency int
}

// MessagingService exposes conversations gated by their acceptance status.
type MessagingService struct {
	api       BackendAPI
	validator *validator.Validate
	logger    *zap.Logger
	limit     int
}

// NewMessagingService constructs a MessagingService.
func NewMessagingService(api BackendAPI, validate *validator.Validate, logger *zap.Logger, cfg MessagingConfig) *MessagingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProfileConcurrency <= 0 {
		cfg.ProfileConcurrency = 8
	}
	return &MessagingService{api: api, validator: newValidator(validate), logger: logger, limit: cfg.ProfileConcurrency}
}

// List returns the caller's conversations. Archived ones are hidden unless
// requested.
func (s *MessagingService) List(ctx context.Context, caller Caller, q dto.ConversationListQuery) ([]dto.ConversationView, error) {
	conversations, err := s.conversations(ctx, caller)
	if err != nil {
		return nil, backend.ToAppError(err)
	}
	visible := make([]models.Conversation, 0, len(conversations))
	for _, c := range conversations {
		if !q.IncludeArchived && c.Status == models.ConversationArchived {
			continue
		}
		visible = append(visible, c)
	}
	return s.views(ctx, caller, visible), nil
}

func (s *MessagingService) conversations(ctx context.Context, caller Caller) ([]models.Conversation, error) {
	all, _, err := listFrom[models.Conversation](ctx, s.api, caller.Creds, conversationsPath, nil)
	if err != nil {
		return nil, err
	}
	if caller.ID() == 0 {
		return all, nil
	}
	mine := make([]models.Conversation, 0, len(all))
	for _, c := range all {
		if c.Participant(caller.ID()) {
			mine = append(mine, c)
		}
	}
	return mine, nil
}

func (s *MessagingService) views(ctx context.Context, caller Caller, conversations []models.Conversation) []dto.ConversationView {
	ids := make([]models.ID, 0, len(conversations))
	for _, c := range conversations {
		if other := c.Counterpart(caller.ID()); other.Value == nil && other.ID != 0 {
			ids = append(ids, other.ID)
		}
	}
	profiles := fetchProfiles(ctx, s.api, caller.Creds, ids, s.limit, s.logger)

	views := make([]dto.ConversationView, 0, len(conversations))
	for _, c := range conversations {
		views = append(views, conversationView(caller, c, profiles))
	}
	return views
}

func conversationView(caller Caller, c models.Conversation, profiles map[models.ID]models.User) dto.ConversationView {
	other := c.Counterpart(caller.ID())
	name := models.UserPlaceholder(other.ID)
	switch {
	case other.Value != nil:
		name = other.Value.DisplayName()
	case other.ID != 0:
		if p, ok := profiles[other.ID]; ok {
			name = p.DisplayName()
		}
	default:
		name = fmt.Sprintf("Conv #%d", c.ID)
	}
	return dto.ConversationView{
		Conversation:    c,
		CounterpartID:   other.ID,
		CounterpartName: name,
		Unread:          c.UnreadFor(caller.User.Role),
		CanSend:         c.Status.CanSend(),
	}
}

func (s *MessagingService) get(ctx context.Context, caller Caller, id models.ID) (models.Conversation, error) {
	var conv models.Conversation
	if err := s.api.Get(ctx, caller.Creds, idPath(conversationsPath, id), nil, &conv); err != nil {
		return conv, backend.ToAppError(err)
	}
	if caller.ID() != 0 && !conv.Participant(caller.ID()) {
		return conv, appErrors.Clone(appErrors.ErrForbidden, "conversation does not belong to you")
	}
	return conv, nil
}

// Act applies a conversation action after checking the transition locally.
func (s *MessagingService) Act(ctx context.Context, caller Caller, id models.ID, action models.ConversationAction) (*dto.ConversationView, error) {
	if !action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", action))
	}
	current, err := s.get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	next, ok := models.CanTransition(current.Status, action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s a conversation that is %s", action, current.Status))
	}
	if action != models.ActionMarkRead && (!caller.User.IsTutor() || current.Tutor.ID != caller.ID()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the tutor can change the conversation status")
	}

	updated, err := s.post(ctx, caller, current, action)
	if err != nil {
		return nil, err
	}
	if action != models.ActionMarkRead && updated.Status != next {
		logger.FromContext(ctx, s.logger).Warn("backend returned unexpected conversation status",
			zap.Int64("conversation_id", int64(id)), zap.String("expected", string(next)), zap.String("got", string(updated.Status)))
	}
	view := conversationView(caller, updated, nil)
	if other := updated.Counterpart(caller.ID()); other.Value == nil && other.ID != 0 {
		view = conversationView(caller, updated, fetchProfiles(ctx, s.api, caller.Creds, []models.ID{other.ID}, 1, s.logger))
	}
	return &view, nil
}

func (s *MessagingService) post(ctx context.Context, caller Caller, current models.Conversation, action models.ConversationAction) (models.Conversation, error) {
	var updated models.Conversation
	path := idPath(conversationsPath, current.ID) + string(action) + "/"
	if err := s.api.Post(ctx, caller.Creds, path, nil, &updated); err != nil {
		return current, backend.ToAppError(err)
	}
	if updated.ID == 0 {
		next, _ := models.CanTransition(current.Status, action)
		updated = current
		updated.Status = next
	} else {
		updated = models.MergeConversation(current, updated)
	}
	if action == models.ActionMarkRead {
		if caller.User.IsTutor() {
			updated.UnreadTutor = 0
		} else {
			updated.UnreadStudent = 0
		}
	}
	return updated, nil
}

// Open marks the conversation read and returns it with its messages.
func (s *MessagingService) Open(ctx context.Context, caller Caller, id models.ID) (*dto.Thread, error) {
	current, err := s.get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if updated, err := s.post(ctx, caller, current, models.ActionMarkRead); err != nil {
		logger.FromContext(ctx, s.logger).Warn("mark read failed", zap.Int64("conversation_id", int64(id)), zap.Error(err))
	} else {
		current = updated
	}

	query := url.Values{}
	query.Set("conversacion", id.String())
	messages, _, err := listFrom[models.Message](ctx, s.api, caller.Creds, messagesPath, query)
	if err != nil {
		return nil, backend.ToAppError(err)
	}

	var profiles map[models.ID]models.User
	if other := current.Counterpart(caller.ID()); other.Value == nil && other.ID != 0 {
		profiles = fetchProfiles(ctx, s.api, caller.Creds, []models.ID{other.ID}, 1, s.logger)
	}
	return &dto.Thread{Conversation: conversationView(caller, current, profiles), Messages: messages}, nil
}

// Send posts a message. The conversation is re-read first so a status change
// made elsewhere is honoured.
func (s *MessagingService) Send(ctx context.Context, caller Caller, id models.ID, req dto.SendMessageRequest) (*models.Message, error) {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, emptyMessage)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "El mensaje es demasiado largo.")
	}
	current, err := s.get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanSend() {
		return nil, appErrors.ErrConversationNotAccepted
	}

	var created models.Message
	body := map[string]any{"conversacion": id, "contenido": req.Content}
	if err := s.api.Post(ctx, caller.Creds, messagesPath, body, &created); err != nil {
		return nil, backend.ToAppError(err)
	}
	return &created, nil
}

// StartFromRequest finds the conversation for a booking request, creating it
// when none exists. It reports whether a conversation was created.
func (s *MessagingService) StartFromRequest(ctx context.Context, caller Caller, requestID models.ID) (*dto.ConversationView, bool, error) {
	if requestID <= 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid booking request id")
	}
	var req models.BookingRequest
	if err := s.api.Get(ctx, caller.Creds, idPath(bookingRequestsPath, requestID), nil, &req); err != nil {
		return nil, false, backend.ToAppError(err)
	}

	tutorID, studentID, courseID := req.TutorID(), req.Student.ID, req.Course.ID
	switch {
	case caller.User.IsTutor() && tutorID == 0:
		tutorID = caller.ID()
	case caller.User.IsStudent() && studentID == 0:
		studentID = caller.ID()
	}
	if tutorID == 0 || studentID == 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, missingParticipants)
	}

	conversations, err := s.conversations(ctx, caller)
	if err != nil {
		return nil, false, backend.ToAppError(err)
	}
	if existing, ok := models.FindConversation(conversations, tutorID, studentID, courseID); ok {
		view := s.views(ctx, caller, []models.Conversation{existing})[0]
		return &view, false, nil
	}

	status := models.InitialConversationStatus(req.Status)
	payload := map[string]any{
		"estado_solicitud": status,
		"tutor":            tutorID,
		"estudiante":       studentID,
	}
	if courseID != 0 {
		payload["curso"] = courseID
	}
	var created models.Conversation
	if err := s.api.Post(ctx, caller.Creds, conversationsPath, payload, &created); err != nil {
		return nil, false, backend.ToAppError(err)
	}

	if status == models.ConversationAccepted && created.Status != models.ConversationAccepted {
		var patched models.Conversation
		body := map[string]any{"estado_solicitud": models.ConversationAccepted}
		if err := s.api.Patch(ctx, caller.Creds, idPath(conversationsPath, created.ID), body, &patched); err != nil {
			logger.FromContext(ctx, s.logger).Warn("could not mark new conversation accepted", zap.Int64("conversation_id", int64(created.ID)), zap.Error(err))
		} else if patched.ID != 0 {
			created = patched
		}
	}

	view := s.views(ctx, caller, []models.Conversation{created})[0]
	return &view, true, nil
}

// Inbox groups the caller's booking requests into pending and accepted, each
// annotated with its conversation. The request status decides the group.
func (s *MessagingService) Inbox(ctx context.Context, caller Caller) (*dto.Inbox, error) {
	var (
		requests      []models.BookingRequest
		conversations []models.Conversation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		requests, _, err = listFrom[models.BookingRequest](gctx, s.api, caller.Creds, bookingRequestsPath, nil)
		return err
	})
	g.Go(func() error {
		var err error
		conversations, _, err = listFrom[models.Conversation](gctx, s.api, caller.Creds, conversationsPath, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, backend.ToAppError(err)
	}

	inbox := &dto.Inbox{Pending: []dto.InboxEntry{}, Accepted: []dto.InboxEntry{}}
	for _, r := range requests {
		if !ownsRequest(caller, r) {
			continue
		}
		entry := dto.InboxEntry{Request: r, CourseName: courseLabel(r.Course)}
		if conv, ok := models.FindConversation(conversations, r.TutorID(), r.Student.ID, r.Course.ID); ok {
			entry.ConversationID = conv.ID
			entry.ConversationAccepted = conv.Status.CanSend()
		}
		switch r.Status {
		case models.RequestAccepted:
			inbox.Accepted = append(inbox.Accepted, entry)
		case models.RequestPending:
			inbox.Pending = append(inbox.Pending, entry)
		}
	}
	return inbox, nil
}

func courseLabel(ref models.Ref[models.Course]) string {
	if ref.Value != nil {
		return ref.Value.DisplayName()
	}
	if ref.ID != 0 {
		return fmt.Sprintf("Curso %d", ref.ID)
	}
	return "Curso"
}
