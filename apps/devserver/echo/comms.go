package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
)

type MessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

func registerCommsAPI(g *echo.Group, s *server, authed ...echo.MiddlewareFunc) {
	mg := g.Group("/messages", authed...)
	mg.GET("/inbox", s.messageBox("recipientId"))
	mg.GET("/sent", s.messageBox("senderId"))
	mg.POST("", s.sendMessage)
	mg.GET("/:id", s.retrieveMessage)
	mg.PATCH("/:id/read", s.readMessage)
	mg.DELETE("/:id", s.destroyMessage)

	ng := g.Group("/notifications", authed...)
	ng.GET("", s.listNotifications)
	ng.POST("", s.create(resNotifications), adminMiddleware())
	ng.GET("/unread-count", s.unreadNotifications)
	ng.PATCH("/read-all", s.readAllNotifications)
	ng.PATCH("/:id/read", s.readNotification)
	ng.DELETE("/:id", s.destroyNotification)
}

// messageBox lists the messages of the context user, as recipient or sender.
func (s *server) messageBox(role string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		f := resMessages.filter(ctx)
		f.Equals[role] = usr.ID
		if f.Sort == "" {
			f.Sort = "-sentAt"
		}
		return s.respondList(ctx, resMessages.key, resMessages.label, getContextTenant(ctx).Query(memdb.TableMessages, f))
	}
}

func (s *server) sendMessage(ctx echo.Context) error {
	var data MessageRequest
	if err := s.bindAndValidate(ctx, &data); err != nil {
		return err
	}
	sender, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tdb := getContextTenant(ctx)
	if _, err := tdb.UserByID(data.RecipientID); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "recipientId", Error: "unknown recipient"})
	}

	ts := now()
	msg := tdb.Insert(memdb.TableMessages, memdb.Record{
		"senderId":    sender.ID,
		"senderName":  sender.Name,
		"recipientId": data.RecipientID,
		"subject":     data.Subject,
		"body":        data.Body,
		"readAt":      nil,
		"sentAt":      ts,
	})
	tdb.Insert(memdb.TableNotifications, memdb.Record{
		"userId":    data.RecipientID,
		"type":      school.NotificationInfo,
		"title":     "New message from " + sender.Name,
		"body":      data.Subject,
		"link":      "/messages/" + msg.ID(),
		"readAt":    nil,
		"createdAt": ts,
	})
	return respond(ctx, http.StatusCreated, "Message sent", echo.Map{resMessages.singular: msg})
}

// ownMessage returns the message of the path if the context user sent or received it.
func ownMessage(ctx echo.Context) (memdb.Record, memdb.User, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return nil, memdb.User{}, errors.Wrap(err, "getting context user")
	}
	msg, err := getContextTenant(ctx).Get(memdb.TableMessages, ctx.Param("id"))
	if err != nil || (msg.String("senderId") != usr.ID && msg.String("recipientId") != usr.ID) {
		return nil, memdb.User{}, notFound("message")
	}
	return msg, usr, nil
}

func (s *server) retrieveMessage(ctx echo.Context) error {
	msg, _, err := ownMessage(ctx)
	if err != nil {
		return err
	}
	return ok(ctx, echo.Map{resMessages.singular: msg})
}

func (s *server) readMessage(ctx echo.Context) error {
	msg, usr, err := ownMessage(ctx)
	if err != nil {
		return err
	}
	if msg.String("recipientId") == usr.ID && msg.String("readAt") == "" {
		if msg, err = getContextTenant(ctx).Update(memdb.TableMessages, msg.ID(), memdb.Record{"readAt": now()}); err != nil {
			return errors.Wrap(err, "updating message")
		}
	}
	return ok(ctx, echo.Map{resMessages.singular: msg})
}

func (s *server) destroyMessage(ctx echo.Context) error {
	msg, _, err := ownMessage(ctx)
	if err != nil {
		return err
	}
	if err := getContextTenant(ctx).Delete(memdb.TableMessages, msg.ID()); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return respond(ctx, http.StatusOK, "Record deleted", nil)
}

// userNotifications returns the notifications of the context user, newest first.
func userNotifications(ctx echo.Context, unreadOnly bool) ([]memdb.Record, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context user")
	}
	f := resNotifications.filter(ctx)
	f.Equals["userId"] = usr.ID
	if f.Sort == "" {
		f.Sort = "-createdAt"
	}
	rows := make([]memdb.Record, 0)
	for _, rec := range getContextTenant(ctx).Query(memdb.TableNotifications, f) {
		if !unreadOnly || rec.String("readAt") == "" {
			rows = append(rows, rec)
		}
	}
	return rows, nil
}

func (s *server) listNotifications(ctx echo.Context) error {
	rows, err := userNotifications(ctx, ctx.QueryParam("unread") == "true")
	if err != nil {
		return err
	}
	return s.respondList(ctx, resNotifications.key, resNotifications.label, rows)
}

func (s *server) unreadNotifications(ctx echo.Context) error {
	rows, err := userNotifications(ctx, true)
	if err != nil {
		return err
	}
	return ok(ctx, echo.Map{"count": len(rows)})
}

func (s *server) readNotification(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tdb := getContextTenant(ctx)
	n, err := tdb.Get(memdb.TableNotifications, ctx.Param("id"))
	if err != nil || n.String("userId") != usr.ID {
		return notFound("notification")
	}
	if n.String("readAt") == "" {
		if n, err = tdb.Update(memdb.TableNotifications, n.ID(), memdb.Record{"readAt": now()}); err != nil {
			return errors.Wrap(err, "updating notification")
		}
	}
	return ok(ctx, echo.Map{resNotifications.singular: n})
}

func (s *server) readAllNotifications(ctx echo.Context) error {
	rows, err := userNotifications(ctx, true)
	if err != nil {
		return err
	}
	tdb := getContextTenant(ctx)
	ts := now()
	for _, n := range rows {
		if _, err := tdb.Update(memdb.TableNotifications, n.ID(), memdb.Record{"readAt": ts}); err != nil {
			return errors.Wrap(err, "updating notification")
		}
	}
	return respond(ctx, http.StatusOK, "All notifications marked as read", nil)
}

func (s *server) destroyNotification(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tdb := getContextTenant(ctx)
	n, err := tdb.Get(memdb.TableNotifications, ctx.Param("id"))
	if err != nil || n.String("userId") != usr.ID {
		return notFound("notification")
	}
	if err := tdb.Delete(memdb.TableNotifications, n.ID()); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return respond(ctx, http.StatusOK, "Record deleted", nil)
}
