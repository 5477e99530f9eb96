package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
	"github.com/visaflow/internal/storage/memory"
	"github.com/visaflow/internal/testdb"
)

const testVisaFee = 2500.0

// testEnv собирает все сервисы поверх общей тестовой базы.
type testEnv struct {
	pool *pgxpool.Pool

	users     *repository.UserRepository
	offices   *repository.OfficeRepository
	visaRepo  *repository.VisaRepository
	docRepo   *repository.DocumentRepository
	payRepo   *repository.PaymentRepository
	chatRepo  *repository.ChatRepository
	notifRepo *repository.NotificationRepository

	auth *AuthService
	visa *VisaService
	chat *ChatService
	docs *DocumentService
	pay  *PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pool := testdb.New(t)

	e := &testEnv{
		pool:      pool,
		users:     repository.NewUserRepository(pool),
		offices:   repository.NewOfficeRepository(pool),
		visaRepo:  repository.NewVisaRepository(pool),
		docRepo:   repository.NewDocumentRepository(pool),
		payRepo:   repository.NewPaymentRepository(pool),
		chatRepo:  repository.NewChatRepository(pool),
		notifRepo: repository.NewNotificationRepository(pool),
	}
	e.chat = NewChatService(pool, e.visaRepo, e.chatRepo, e.notifRepo)
	e.visa = NewVisaService(pool, e.visaRepo, e.offices, e.docRepo, e.payRepo, e.users, e.chat, testVisaFee)
	e.docs = NewDocumentService(pool, e.visaRepo, e.docRepo, 3)
	e.pay = NewPaymentService(pool, e.visaRepo, e.payRepo, e.chatRepo, e.chat, testVisaFee)
	e.auth = NewAuthService(e.users, e.offices, memory.New())
	return e
}

var userSeq atomic.Int64

func nextEmail() string {
	return fmt.Sprintf("user%d@example.com", userSeq.Add(1))
}

func (e *testEnv) newUser(t *testing.T, role model.Role) model.Identity {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         "Test User",
		Email:        nextEmail(),
		PasswordHash: "not-a-real-hash",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return model.Identity{ID: u.ID, Role: role}
}

func (e *testEnv) newApplicant(t *testing.T) model.Identity {
	t.Helper()
	return e.newUser(t, model.RoleApplicant)
}

func (e *testEnv) newAdmin(t *testing.T) model.Identity {
	t.Helper()
	return e.newUser(t, model.RoleAdmin)
}

func (e *testEnv) newOffice(t *testing.T, visaLimit int) model.Identity {
	t.Helper()
	id := e.newUser(t, model.RoleOffice)
	if err := e.offices.CreateProfile(context.Background(), id.ID, "12 Main St", "Damascus", visaLimit, time.Now().UTC()); err != nil {
		t.Fatalf("create office profile: %v", err)
	}
	return id
}

// newRequest вставляет заявку напрямую в нужном статусе, минуя жизненный
// цикл, чтобы тест начинался с интересующего состояния.
func (e *testEnv) newRequest(t *testing.T, applicant model.Identity, status model.VisaStatus) *model.VisaRequest {
	t.Helper()
	now := time.Now().UTC()
	v := &model.VisaRequest{
		ID:             uuid.New().String(),
		ApplicantID:    applicant.ID,
		PassportNumber: "N1234567",
		Status:         status,
		PaymentAmount:  testVisaFee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.visaRepo.Create(context.Background(), v); err != nil {
		t.Fatalf("create visa request: %v", err)
	}
	return v
}

// assignRequest проводит заявку через реальное назначение офиса.
func (e *testEnv) assignRequest(t *testing.T, admin model.Identity, req *model.VisaRequest, office model.Identity) *model.VisaRequest {
	t.Helper()
	assigned, err := e.visa.AssignOffice(context.Background(), admin, req.ID, office.ID)
	if err != nil {
		t.Fatalf("assign office: %v", err)
	}
	return assigned
}

func (e *testEnv) requestStatus(t *testing.T, id string) model.VisaStatus {
	t.Helper()
	v, err := e.visaRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get visa request: %v", err)
	}
	return v.Status
}

func (e *testEnv) officeByID(t *testing.T, id string) *model.Office {
	t.Helper()
	o, err := e.offices.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get office: %v", err)
	}
	return o
}
