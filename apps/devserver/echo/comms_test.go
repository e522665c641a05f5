package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core/school"
)

func Test_commsApi_messages(t *testing.T) {
	env := setup(t)
	admin := env.adminToken(t)
	teacher, tUsr := env.userToken(t, "teacher@demo.educloud.com", school.RoleTeacher)
	parent, _ := env.userToken(t, "parent@demo.educloud.com", school.RoleParent)

	env.run(t, []httpTest{
		{name: "empty inbox", method: http.MethodGet, path: "/api/messages/inbox", tenant: memdb.DemoSubdomain, token: teacher, wantCode: http.StatusNotFound, wantData: errBody(t, "No messages found")},
		{name: "unknown recipient", method: http.MethodPost, path: "/api/messages", body: []byte(`{"recipientId":"nobody","subject":"Hi","body":"Hello"}`), tenant: memdb.DemoSubdomain, token: admin, wantCode: http.StatusUnprocessableEntity},
	})

	rec := env.do(http.MethodPost, "/api/messages", admin, marshalObj(t, map[string]string{
		"recipientId": tUsr.ID, "subject": "Staff meeting", "body": "Friday at 3pm.",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data struct {
		Message school.Message `json:"message"`
	}
	decodeData(t, rec, &data)
	msgID := data.Message.ID
	assert.Equal(t, "Demo Admin", data.Message.SenderName)

	var inbox struct {
		Messages []school.Message `json:"messages"`
	}
	rec = env.do(http.MethodGet, "/api/messages/inbox", teacher)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &inbox)
	require.Len(t, inbox.Messages, 1)
	assert.Equal(t, "Staff meeting", inbox.Messages[0].Subject)

	rec = env.do(http.MethodGet, "/api/messages/sent", admin)
	require.Equal(t, http.StatusOK, rec.Code)

	// only the sender and the recipient see a message
	rec = env.do(http.MethodGet, "/api/messages/"+msgID, parent)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPatch, "/api/messages/"+msgID+"/read", teacher)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &data)
	assert.True(t, data.Message.ReadAt.Valid)

	rec = env.do(http.MethodDelete, "/api/messages/"+msgID, teacher)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/api/messages/"+msgID, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_commsApi_notifications(t *testing.T) {
	env := setup(t)
	admin := env.adminToken(t)
	teacher, tUsr := env.userToken(t, "teacher@demo.educloud.com", school.RoleTeacher)

	var count struct {
		Count int `json:"count"`
	}
	unread := func(token string) int {
		rec := env.do(http.MethodGet, "/api/notifications/unread-count", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decodeData(t, rec, &count)
		return count.Count
	}

	assert.Equal(t, 1, unread(admin))
	assert.Equal(t, 0, unread(teacher))

	env.run(t, []httpTest{
		{name: "no notifications", method: http.MethodGet, path: "/api/notifications", tenant: memdb.DemoSubdomain, token: teacher, wantCode: http.StatusNotFound, wantData: errBody(t, "No notifications found")},
		{name: "teachers cannot notify", method: http.MethodPost, path: "/api/notifications", body: []byte(`{"userId":"x","title":"y"}`), tenant: memdb.DemoSubdomain, token: teacher, wantCode: http.StatusForbidden},
		{name: "not own notification", method: http.MethodPatch, path: "/api/notifications/notification-1/read", tenant: memdb.DemoSubdomain, token: teacher, wantCode: http.StatusNotFound, wantData: errBody(t, "notification not found")},
	})

	for _, title := range []string{"Report cards", "Fees reminder"} {
		rec := env.do(http.MethodPost, "/api/notifications", admin, marshalObj(t, map[string]string{"userId": tUsr.ID, "title": title}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	assert.Equal(t, 2, unread(teacher))

	var list struct {
		Notifications []school.Notification `json:"notifications"`
	}
	rec := env.do(http.MethodGet, "/api/notifications?unread=true", teacher)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &list)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, school.NotificationInfo, list.Notifications[0].Type)

	rec = env.do(http.MethodPatch, "/api/notifications/"+list.Notifications[0].ID+"/read", teacher)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, unread(teacher))

	rec = env.do(http.MethodPatch, "/api/notifications/read-all", teacher)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, unread(teacher))
	assert.Equal(t, 1, unread(admin))

	rec = env.do(http.MethodDelete, "/api/notifications/notification-1", admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, unread(admin))
}
