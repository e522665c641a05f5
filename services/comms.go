package services

import (
	"context"
	"net/http"

	"github.com/trezcool/educloud/core/school"
)

type MessageInput struct {
	RecipientID string `json:"recipientId"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

type MessageService struct {
	Resource[school.Message]
}

func (svc *MessageService) Inbox(ctx context.Context, params ListParams) (Page[school.Message], error) {
	return listPage[school.Message](ctx, svc.api, svc.empty, svc.path+"/inbox", svc.ent, params)
}

func (svc *MessageService) Sent(ctx context.Context, params ListParams) (Page[school.Message], error) {
	return listPage[school.Message](ctx, svc.api, svc.empty, svc.path+"/sent", svc.ent, params)
}

func (svc *MessageService) Send(ctx context.Context, in MessageInput) (school.Message, error) {
	return svc.Create(ctx, in)
}

func (svc *MessageService) MarkRead(ctx context.Context, id string) (school.Message, error) {
	return svc.write(ctx, http.MethodPatch, svc.path+pathID(id)+"/read", nil)
}

type NotificationFilter struct {
	ListParams
	Unread bool   `url:"unread,omitempty"`
	Type   string `url:"type,omitempty"`
}

type NotificationService struct {
	Resource[school.Notification]
}

func (svc *NotificationService) MarkRead(ctx context.Context, id string) (school.Notification, error) {
	return svc.write(ctx, http.MethodPatch, svc.path+pathID(id)+"/read", nil)
}

func (svc *NotificationService) MarkAllRead(ctx context.Context) error {
	_, err := svc.api.Patch(ctx, svc.path+"/read-all", nil)
	return err
}

func (svc *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	env, err := svc.api.Get(ctx, svc.path+"/unread-count", nil)
	if err != nil {
		return 0, err
	}
	var data struct {
		Count int `json:"count"`
	}
	if err := env.Decode(&data); err != nil {
		return 0, err
	}
	return data.Count, nil
}

type AnnouncementFilter struct {
	ListParams
	Audience string `url:"audience,omitempty"`
}

type AnnouncementService struct {
	Resource[school.Announcement]
}
