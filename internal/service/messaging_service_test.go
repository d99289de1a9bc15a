package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

func TestConversationListHidesArchivedAndForeign(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, conversationsPath, []map[string]any{
			{"id": 1, "tutor": 9, "estudiante": map[string]any{"id": 3, "first_name": "Luisa", "last_name": "Pérez"}, "estado_solicitud": "aceptada", "unread_tutor": 2},
			{"id": 2, "tutor": 9, "estudiante": 4, "estado_solicitud": "archivada"},
			{"id": 3, "tutor": 9, "estudiante": 5, "estado": "pendiente"},
			{"id": 4, "tutor": 10, "estudiante": 3, "estado_solicitud": "aceptada"},
		}).
		on(http.MethodGet, usersPath+"5/", map[string]any{"id": 5, "username": "mario"})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	views, err := svc.List(context.Background(), tutorCaller(9), dto.ConversationListQuery{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Luisa Pérez", views[0].CounterpartName)
	assert.Equal(t, 2, views[0].Unread)
	assert.True(t, views[0].CanSend)
	assert.Equal(t, "mario", views[1].CounterpartName)
	assert.False(t, views[1].CanSend)

	all, err := svc.List(context.Background(), tutorCaller(9), dto.ConversationListQuery{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Usuario 4", all[1].CounterpartName)
}

func TestConversationActChecksTransitionAndRole(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, conversationsPath+"1/", map[string]any{"id": 1, "tutor": 9, "estudiante": 3, "estado_solicitud": "pendiente"}).
		on(http.MethodPost, conversationsPath+"1/aceptar/", map[string]any{"id": 1, "tutor": 9, "estudiante": 3, "estado_solicitud": "aceptada"}).
		on(http.MethodGet, usersPath+"3/", map[string]any{"id": 3, "username": "luisa"})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})
	ctx := context.Background()

	_, err := svc.Act(ctx, tutorCaller(9), 1, "borrar")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Act(ctx, tutorCaller(9), 1, models.ActionArchive)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = svc.Act(ctx, studentCaller(3), 1, models.ActionAccept)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Act(ctx, tutorCaller(11), 1, models.ActionAccept)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Empty(t, api.callsTo(http.MethodPost, conversationsPath+"1/aceptar/"))

	view, err := svc.Act(ctx, tutorCaller(9), 1, models.ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationAccepted, view.Status)
	assert.True(t, view.CanSend)
	assert.Equal(t, "luisa", view.CounterpartName)
}

func TestConversationActKeepsFieldsMissingFromResponse(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, conversationsPath+"7/", map[string]any{"id": 7, "tutor": 9, "estudiante": 3, "estado_solicitud": "pendiente", "unread_tutor": 4}).
		on(http.MethodPost, conversationsPath+"7/aceptar/", map[string]any{"id": 7, "estado_solicitud": "aceptada"}).
		on(http.MethodGet, usersPath+"3/", map[string]any{"id": 3, "username": "luisa"})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	view, err := svc.Act(context.Background(), tutorCaller(9), 7, models.ActionAccept)
	require.NoError(t, err)
	assert.True(t, view.CanSend)
	assert.Equal(t, models.ID(9), view.Tutor.ID)
	assert.Equal(t, models.ID(3), view.Student.ID)
	assert.Equal(t, "luisa", view.CounterpartName)
	assert.NotEqual(t, "Conv #7", view.CounterpartName)
	assert.Equal(t, 4, view.Unread)
}

func TestConversationOpenClearsOwnUnreadCounter(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, conversationsPath+"2/", map[string]any{"id": 2, "tutor": map[string]any{"id": 9, "username": "profe"}, "estudiante": 3, "estado_solicitud": "aceptada", "unread_tutor": 1, "unread_estudiante": 6}).
		on(http.MethodPost, conversationsPath+"2/marcar_leidos/", map[string]any{"id": 2}).
		on(http.MethodGet, messagesPath, []map[string]any{})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	thread, err := svc.Open(context.Background(), studentCaller(3), 2)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationAccepted, thread.Conversation.Status)
	assert.Equal(t, "profe", thread.Conversation.CounterpartName)
	assert.Equal(t, 0, thread.Conversation.Unread)
}

func TestConversationSendRequiresAcceptance(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, conversationsPath+"1/", map[string]any{"id": 1, "tutor": 9, "estudiante": 3, "estado_solicitud": "pendiente"}).
		on(http.MethodGet, conversationsPath+"2/", map[string]any{"id": 2, "tutor": 9, "estudiante": 3, "estado_solicitud": "aceptada"}).
		on(http.MethodPost, messagesPath, map[string]any{"id": 70, "conversacion": 2, "texto": "hola"})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})
	ctx := context.Background()

	_, err := svc.Send(ctx, studentCaller(3), 2, dto.SendMessageRequest{Content: "   "})
	require.Error(t, err)
	assert.Equal(t, "El mensaje no puede estar vacío.", err.Error())

	_, err = svc.Send(ctx, studentCaller(3), 1, dto.SendMessageRequest{Content: "hola"})
	assert.ErrorIs(t, err, appErrors.ErrConversationNotAccepted)

	msg, err := svc.Send(ctx, studentCaller(3), 2, dto.SendMessageRequest{Content: " hola "})
	require.NoError(t, err)
	assert.Equal(t, "hola", msg.Content)
	posts := api.callsTo(http.MethodPost, messagesPath)
	require.Len(t, posts, 1)
	assert.Equal(t, map[string]any{"conversacion": float64(2), "contenido": "hola"}, posts[0].Body)
}

func TestConversationOpenToleratesMarkReadFailure(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, conversationsPath+"2/", map[string]any{"id": 2, "tutor": map[string]any{"id": 9, "username": "profe"}, "estudiante": 3, "estado_solicitud": "aceptada"}).
		fail(http.MethodPost, conversationsPath+"2/marcar_leidos/", http.StatusInternalServerError, "boom").
		on(http.MethodGet, messagesPath, []map[string]any{{"id": 1, "conversacion": 2, "contenido": "hola", "remitente": 9}})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	thread, err := svc.Open(context.Background(), studentCaller(3), 2)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "profe", thread.Conversation.CounterpartName)
	calls := api.callsTo(http.MethodGet, messagesPath)
	require.Len(t, calls, 1)
	assert.Equal(t, "2", calls[0].Query.Get("conversacion"))
}

func TestConversationOpenRejectsOutsiders(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, conversationsPath+"2/", map[string]any{"id": 2, "tutor": 9, "estudiante": 3})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	_, err := svc.Open(context.Background(), studentCaller(4), 2)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestStartFromRequestReusesExistingConversation(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, bookingRequestsPath+"7/", map[string]any{"id": 7, "curso": 5, "tutor": 9, "estudiante": 3, "estado": "aceptada"}).
		on(http.MethodGet, conversationsPath, []map[string]any{{"id": 40, "tutor": 9, "estudiante": 3, "curso": 5, "estado_solicitud": "aceptada"}}).
		on(http.MethodGet, usersPath+"3/", map[string]any{"id": 3, "username": "luisa"})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	view, created, err := svc.StartFromRequest(context.Background(), tutorCaller(9), 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.ID(40), view.ID)
	assert.Empty(t, api.callsTo(http.MethodPost, conversationsPath))
}

func TestStartFromRequestCreatesAcceptedConversation(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, bookingRequestsPath+"7/", map[string]any{"id": 7, "curso": 5, "estudiante": 3, "estado": "aceptada"}).
		on(http.MethodGet, conversationsPath, []map[string]any{}).
		on(http.MethodPost, conversationsPath, map[string]any{"id": 41, "tutor": 9, "estudiante": 3, "curso": 5, "estado_solicitud": "pendiente"}).
		on(http.MethodPatch, conversationsPath+"41/", map[string]any{"id": 41, "tutor": 9, "estudiante": 3, "curso": 5, "estado_solicitud": "aceptada"})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	view, created, err := svc.StartFromRequest(context.Background(), tutorCaller(9), 7)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, view.CanSend)

	posts := api.callsTo(http.MethodPost, conversationsPath)
	require.Len(t, posts, 1)
	assert.Equal(t, map[string]any{"estado_solicitud": "aceptada", "tutor": float64(9), "estudiante": float64(3), "curso": float64(5)}, posts[0].Body)
	assert.Len(t, api.callsTo(http.MethodPatch, conversationsPath+"41/"), 1)
}

func TestStartFromRequestNeedsBothParticipants(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, bookingRequestsPath+"7/", map[string]any{"id": 7, "curso": 5, "estudiante": 3})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	_, _, err := svc.StartFromRequest(context.Background(), studentCaller(3), 7)
	require.Error(t, err)
	assert.Equal(t, missingParticipants, err.Error())
}

func TestInboxGroupsByRequestStatus(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, bookingRequestsPath, []map[string]any{
			{"id": 1, "curso": map[string]any{"id_curso": 5, "nombre": "Álgebra"}, "tutor": 9, "estudiante": 3, "estado": "pendiente"},
			{"id": 2, "curso": 6, "tutor": 9, "estudiante": 3, "estado": "aceptada"},
			{"id": 3, "curso": 7, "tutor": 9, "estudiante": 3, "estado": "rechazada"},
			{"id": 4, "curso": 8, "tutor": 9, "estudiante": 4, "estado": "pendiente"},
		}).
		on(http.MethodGet, conversationsPath, []map[string]any{
			{"id": 50, "tutor": 9, "estudiante": 3, "curso": 6, "estado_solicitud": "pendiente"},
		})
	svc := NewMessagingService(api, nil, nil, MessagingConfig{})

	inbox, err := svc.Inbox(context.Background(), studentCaller(3))
	require.NoError(t, err)
	require.Len(t, inbox.Pending, 1)
	assert.Equal(t, "Álgebra", inbox.Pending[0].CourseName)
	assert.Zero(t, inbox.Pending[0].ConversationID)

	require.Len(t, inbox.Accepted, 1)
	assert.Equal(t, "Curso 6", inbox.Accepted[0].CourseName)
	assert.Equal(t, models.ID(50), inbox.Accepted[0].ConversationID)
	assert.False(t, inbox.Accepted[0].ConversationAccepted)
}
