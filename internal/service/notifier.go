package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Turbi-kon/online-school-backend/internal/bus"
	"github.com/Turbi-kon/online-school-backend/internal/model"
	"go.uber.org/zap"
)

// Notifier fans administrator-authored notifications out to student
// private topics. The audience is resolved once at dispatch time; users
// who become eligible later see nothing retroactively.
type Notifier struct {
	notifications NotificationStore
	users         UserStore
	bus           bus.Bus
	log           *zap.Logger
}

// NewNotifier creates the notification fan-out.
func NewNotifier(notifications NotificationStore, users UserStore, b bus.Bus, log *zap.Logger) *Notifier {
	return &Notifier{notifications: notifications, users: users, bus: b, log: log}
}

// Create persists the notification and dispatches it.
func (n *Notifier) Create(ctx context.Context, req model.CreateNotificationRequest) (*model.Notification, error) {
	notif := &model.Notification{
		Title:   req.Title,
		Message: req.Message,
		Image:   req.Image,
		GroupID: req.GroupID,
	}
	if err := n.notifications.CreateNotification(ctx, notif); err != nil {
		return nil, fmt.Errorf("notifier: persist: %w", err)
	}
	if err := n.Dispatch(ctx, notif); err != nil {
		return nil, err
	}
	return notif, nil
}

// Dispatch publishes the notification to the private topic of every
// active student matching the target group (all students when the group
// is unset).
func (n *Notifier) Dispatch(ctx context.Context, notif *model.Notification) error {
	users, err := n.users.ListActiveStudents(ctx, notif.GroupID)
	if err != nil {
		return fmt.Errorf("notifier: resolve audience: %w", err)
	}
	payload, err := json.Marshal(model.NotificationEvent{
		Type:    model.EventNotification,
		Title:   notif.Title,
		Message: notif.Message,
		Image:   notif.Image,
	})
	if err != nil {
		return fmt.Errorf("notifier: encode event: %w", err)
	}
	for _, u := range users {
		if err := n.bus.Publish(ctx, bus.UserTopic(u.ID), payload); err != nil {
			n.log.Warn("notifier: publish failed",
				zap.Uint("user_id", u.ID), zap.Error(err))
		}
	}
	n.log.Info("notifier: dispatched",
		zap.String("title", notif.Title),
		zap.Int("recipients", len(users)))
	return nil
}

// List returns notifications visible to the user: students see broadcasts
// plus their own group, privileged roles see everything. Newest first.
func (n *Notifier) List(ctx context.Context, user *model.User) ([]model.NotificationView, error) {
	var (
		items []model.Notification
		err   error
	)
	if user.Role == model.RoleStudent {
		items, err = n.notifications.ListNotificationsForStudent(ctx, user.GroupID)
	} else {
		items, err = n.notifications.ListNotifications(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.NotificationView, 0, len(items))
	for _, it := range items {
		out = append(out, model.NotificationView{
			ID:        it.ID,
			Title:     it.Title,
			Message:   it.Message,
			Image:     it.Image,
			GroupID:   it.GroupID,
			CreatedAt: it.CreatedAt,
		})
	}
	return out, nil
}
