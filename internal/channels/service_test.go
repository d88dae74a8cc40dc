package channels

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gostackhq/reckoner-backend/pkg/db/models"
	pkgerrors "github.com/gostackhq/reckoner-backend/pkg/errors"
)

type stubRepo struct {
	created    []*models.Channel
	byID       map[uuid.UUID]*models.Channel
	selling    []models.Channel
	all        []models.Channel
	companies  []models.Company
	createFn   func(*models.Channel) error
	livePrices int64
	liveOffers int64
	disabled   []uuid.UUID
}

func (s *stubRepo) Create(_ context.Context, ch *models.Channel) error {
	if s.createFn != nil {
		return s.createFn(ch)
	}
	ch.ID = uuid.New()
	s.created = append(s.created, ch)
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Channel, error) {
	if ch, ok := s.byID[id]; ok {
		return ch, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) ListSelling(context.Context) ([]models.Channel, error) { return s.selling, nil }
func (s *stubRepo) ListAll(context.Context) ([]models.Channel, error)    { return s.all, nil }

func (s *stubRepo) SetDisabled(_ context.Context, id uuid.UUID, disabled bool) error {
	if disabled {
		s.disabled = append(s.disabled, id)
	}
	return nil
}

func (s *stubRepo) CountLiveUsage(context.Context, uuid.UUID) (int64, int64, error) {
	return s.livePrices, s.liveOffers, nil
}

func (s *stubRepo) ListCompanies(context.Context) ([]models.Company, error) {
	return s.companies, nil
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc, _ := NewService(&stubRepo{})
	_, err := svc.Create(context.Background(), CreateChannelInput{Name: "   "})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateTrimsName(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := NewService(repo)
	dto, err := svc.Create(context.Background(), CreateChannelInput{Name: "  Point of Sale "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Name != "Point of Sale" {
		t.Fatalf("unexpected name %q", dto.Name)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := NewService(&stubRepo{byID: map[uuid.UUID]*models.Channel{}})
	_, err := svc.GetByID(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListSelling(t *testing.T) {
	repo := &stubRepo{selling: []models.Channel{{ID: uuid.New(), Name: "web"}}}
	svc, _ := NewService(repo)
	out, err := svc.ListSelling(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Name != "web" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestDisableBlockedByLiveRecords(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{
		byID:       map[uuid.UUID]*models.Channel{id: {ID: id, Name: "web"}},
		livePrices: 3,
	}
	svc, _ := NewService(repo)
	_, err := svc.Disable(context.Background(), id)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(repo.disabled) != 0 {
		t.Fatal("channel must not be disabled while records are live")
	}
}

func TestDisableIdleChannel(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{byID: map[uuid.UUID]*models.Channel{id: {ID: id, Name: "web"}}}
	svc, _ := NewService(repo)
	dto, err := svc.Disable(context.Background(), id)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if !dto.Disabled {
		t.Fatal("expected disabled flag set")
	}
	if len(repo.disabled) != 1 || repo.disabled[0] != id {
		t.Fatalf("unexpected repo writes %v", repo.disabled)
	}
}

func TestDisableIsIdempotent(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{byID: map[uuid.UUID]*models.Channel{id: {ID: id, Name: "web", Disabled: true}}}
	svc, _ := NewService(repo)
	dto, err := svc.Disable(context.Background(), id)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if !dto.Disabled {
		t.Fatal("expected disabled flag set")
	}
	if len(repo.disabled) != 0 {
		t.Fatal("already-disabled channel should not be rewritten")
	}
}

func TestListCompanies(t *testing.T) {
	repo := &stubRepo{companies: []models.Company{{ID: uuid.New(), Name: "Acme Retail"}}}
	svc, _ := NewService(repo)
	out, err := svc.ListCompanies(context.Background())
	if err != nil {
		t.Fatalf("list companies: %v", err)
	}
	if len(out) != 1 || out[0].Name != "Acme Retail" {
		t.Fatalf("unexpected result %+v", out)
	}
}
