package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bidhouse/pkg/client"
	"bidhouse/pkg/config"
	"bidhouse/pkg/logger"
	"bidhouse/pkg/model"
)

type mockReservationRepository struct {
	findPendingFunc func(ctx context.Context, limit int) ([]*model.NotificationReservation, error)
	markSentFunc    func(ctx context.Context, id string, sentAt time.Time) error
	markFailedFunc  func(ctx context.Context, id string) error
}

func (m *mockReservationRepository) Create(ctx context.Context, r *model.NotificationReservation) error {
	return nil
}

func (m *mockReservationRepository) FindPending(ctx context.Context, limit int) ([]*model.NotificationReservation, error) {
	if m.findPendingFunc != nil {
		return m.findPendingFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockReservationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if m.markSentFunc != nil {
		return m.markSentFunc(ctx, id, sentAt)
	}
	return nil
}

func (m *mockReservationRepository) MarkFailed(ctx context.Context, id string) error {
	if m.markFailedFunc != nil {
		return m.markFailedFunc(ctx, id)
	}
	return nil
}

func newNotifierTestConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:   logger.INFO,
		Format:  logger.JSON,
		Service: "test",
	})
	return &config.Config{
		Log:            log,
		NotifyInterval: time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

func pendingReservation(id, userID string, t model.NotificationType) *model.NotificationReservation {
	return &model.NotificationReservation{
		ID:          id,
		UserID:      userID,
		AuctionID:   "auction-1",
		Type:        t,
		Status:      model.ReservationPending,
		ScheduledAt: time.Now().UTC(),
	}
}

func TestDispatchPending_SendsAndMarksSent(t *testing.T) {
	var received client.NotifyRequest
	notifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/notifications" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer notifierSrv.Close()

	usersSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(client.UserProfile{ID: "dave", Nickname: "Dave"})
	}))
	defer usersSrv.Close()

	var sentID string
	repo := &mockReservationRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*model.NotificationReservation, error) {
			return []*model.NotificationReservation{
				pendingReservation("res-1", "dave", model.NotificationAuctionOffer),
			}, nil
		},
		markSentFunc: func(ctx context.Context, id string, sentAt time.Time) error {
			sentID = id
			return nil
		},
	}

	n := NewNotifier(repo, client.NewNotifierClient(notifierSrv.URL), client.NewUserDirectoryClient(usersSrv.URL), newNotifierTestConfig())

	if err := n.DispatchPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sentID != "res-1" {
		t.Errorf("expected reservation res-1 marked sent, got %q", sentID)
	}
	if received.UserID != "dave" {
		t.Errorf("expected notification for dave, got %q", received.UserID)
	}
	if received.Type != string(model.NotificationAuctionOffer) {
		t.Errorf("unexpected notification type %q", received.Type)
	}
}

func TestDispatchPending_FailureLeavesReservationPending(t *testing.T) {
	notifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer notifierSrv.Close()

	usersSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer usersSrv.Close()

	markSentCalled := false
	repo := &mockReservationRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*model.NotificationReservation, error) {
			return []*model.NotificationReservation{
				pendingReservation("res-1", "dave", model.NotificationAuctionNoWinner),
			}, nil
		},
		markSentFunc: func(ctx context.Context, id string, sentAt time.Time) error {
			markSentCalled = true
			return nil
		},
	}

	n := NewNotifier(repo, client.NewNotifierClient(notifierSrv.URL), client.NewUserDirectoryClient(usersSrv.URL), newNotifierTestConfig())

	if err := n.DispatchPending(context.Background()); err != nil {
		t.Fatalf("dispatch run must survive a send failure: %v", err)
	}

	if markSentCalled {
		t.Error("failed send must leave the reservation pending for retry")
	}
}

func TestDispatchPending_StaleReservationIsMarkedFailed(t *testing.T) {
	notifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer notifierSrv.Close()

	usersSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer usersSrv.Close()

	stale := pendingReservation("res-1", "dave", model.NotificationAuctionOffer)
	stale.ScheduledAt = time.Now().UTC().Add(-48 * time.Hour)

	var failedID string
	repo := &mockReservationRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*model.NotificationReservation, error) {
			return []*model.NotificationReservation{stale}, nil
		},
		markFailedFunc: func(ctx context.Context, id string) error {
			failedID = id
			return nil
		},
	}

	n := NewNotifier(repo, client.NewNotifierClient(notifierSrv.URL), client.NewUserDirectoryClient(usersSrv.URL), newNotifierTestConfig())

	if err := n.DispatchPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if failedID != "res-1" {
		t.Errorf("expected stale reservation marked failed, got %q", failedID)
	}
}

func TestDispatchPending_ProfileOutageDoesNotBlockDelivery(t *testing.T) {
	delivered := false
	notifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered = true
		w.WriteHeader(http.StatusOK)
	}))
	defer notifierSrv.Close()

	usersSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer usersSrv.Close()

	repo := &mockReservationRepository{
		findPendingFunc: func(ctx context.Context, limit int) ([]*model.NotificationReservation, error) {
			return []*model.NotificationReservation{
				pendingReservation("res-1", "dave", model.NotificationAuctionOffer),
			}, nil
		},
	}

	n := NewNotifier(repo, client.NewNotifierClient(notifierSrv.URL), client.NewUserDirectoryClient(usersSrv.URL), newNotifierTestConfig())

	if err := n.DispatchPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !delivered {
		t.Error("notification must be delivered even when the profile lookup fails")
	}
}
