package stores

import (
	"context"

	"github.com/trezcool/educloud/core/school"
	"github.com/trezcool/educloud/services"
)

type MessageActions interface {
	CRUD[school.Message]
	Inbox(ctx context.Context, params services.ListParams) (services.Page[school.Message], error)
	Sent(ctx context.Context, params services.ListParams) (services.Page[school.Message], error)
	Send(ctx context.Context, in services.MessageInput) (school.Message, error)
	MarkRead(ctx context.Context, id string) (school.Message, error)
}

// MessageStore caches the inbox and the sent messages.
type MessageStore struct {
	Inbox *CollectionStore[school.Message]
	Sent  *CollectionStore[school.Message]

	svc MessageActions
}

func NewMessageStore(svc MessageActions) *MessageStore {
	return &MessageStore{
		Inbox: NewCollectionStore[school.Message](inbox{svc}),
		Sent:  NewCollectionStore[school.Message](sent{svc}),
		svc:   svc,
	}
}

func (s *MessageStore) FetchInbox(ctx context.Context, params services.ListParams) error {
	return s.Inbox.Fetch(ctx, params)
}

func (s *MessageStore) FetchSent(ctx context.Context, params services.ListParams) error {
	return s.Sent.Fetch(ctx, params)
}

// Send sends a message and appends it to the sent messages.
func (s *MessageStore) Send(ctx context.Context, in services.MessageInput) (school.Message, error) {
	return s.Sent.mutate(func() (school.Message, error) { return s.svc.Send(ctx, in) })
}

func (s *MessageStore) MarkRead(ctx context.Context, id string) (school.Message, error) {
	return s.Inbox.mutate(func() (school.Message, error) { return s.svc.MarkRead(ctx, id) })
}

// UnreadCount counts the unread cached inbox messages.
func (s *MessageStore) UnreadCount() int {
	count := 0
	for _, m := range s.Inbox.State().Items {
		if !m.IsRead() {
			count++
		}
	}
	return count
}

// inbox and sent list their folder instead of the whole collection.
type inbox struct{ MessageActions }

func (f inbox) List(ctx context.Context, params interface{}) (services.Page[school.Message], error) {
	p, _ := params.(services.ListParams)
	return f.Inbox(ctx, p)
}

type sent struct{ MessageActions }

func (f sent) List(ctx context.Context, params interface{}) (services.Page[school.Message], error) {
	p, _ := params.(services.ListParams)
	return f.MessageActions.Sent(ctx, p)
}
