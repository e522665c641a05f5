package stores

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educloud/core/school"
)

type NotificationActions interface {
	CRUD[school.Notification]
	MarkRead(ctx context.Context, id string) (school.Notification, error)
	MarkAllRead(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
}

// NotificationStore caches the notifications and the unread count.
type NotificationStore struct {
	*CollectionStore[school.Notification]
	svc NotificationActions

	unread int
	now    func() time.Time
}

func NewNotificationStore(svc NotificationActions) *NotificationStore {
	return &NotificationStore{CollectionStore: NewCollectionStore[school.Notification](svc), svc: svc, now: time.Now}
}

func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// RefreshUnread fetches the unread count.
func (s *NotificationStore) RefreshUnread(ctx context.Context) (int, error) {
	count, err := s.svc.UnreadCount(ctx)
	if err != nil {
		s.fail(err)
		return 0, err
	}
	s.update(func(*State[school.Notification]) { s.unread = count })
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id string) (school.Notification, error) {
	wasUnread := false
	if n, ok := s.State().Find(id); ok {
		wasUnread = !n.IsRead()
	}
	n, err := s.mutate(func() (school.Notification, error) { return s.svc.MarkRead(ctx, id) })
	if err != nil {
		return n, err
	}
	if wasUnread {
		s.update(func(*State[school.Notification]) {
			if s.unread > 0 {
				s.unread--
			}
		})
	}
	return n, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	s.begin()
	if err := s.svc.MarkAllRead(ctx); err != nil {
		s.fail(err)
		return err
	}
	readAt := null.TimeFrom(s.now())
	s.update(func(st *State[school.Notification]) {
		st.Loading = false
		for i := range st.Items {
			if !st.Items[i].IsRead() {
				st.Items[i].ReadAt = readAt
			}
		}
		s.unread = 0
	})
	return nil
}
