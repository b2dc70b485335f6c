package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/minervamed/clinic-scheduler/config"
	"github.com/minervamed/clinic-scheduler/internal/delivery/http/middleware"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/slot"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/chat"
	"github.com/minervamed/clinic-scheduler/pkg/jwt"
	"github.com/minervamed/clinic-scheduler/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestCalculator(t *testing.T) *slot.Calculator {
	t.Helper()
	grid, err := slot.NewGrid("09:00", "17:00", 30)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	calc, err := slot.NewCalculator(grid, []int{30, 60, 90, 120})
	if err != nil {
		t.Fatalf("NewCalculator() error = %v", err)
	}
	return calc
}

func newTestJWT() *jwt.JWTService {
	return jwt.NewJWTService(config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	})
}

func actorContext(actor entity.Actor) context.Context {
	return middleware.WithActor(context.Background(), actor)
}

// fakeAppointmentRepo is an in-memory store that honours the conditional
// updates the real repository performs.
type fakeAppointmentRepo struct {
	mu       sync.Mutex
	rows     map[string]entity.Appointment
	seq      int
	findErr  error
	rangeErr error
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{rows: map[string]entity.Appointment{}}
}

func (r *fakeAppointmentRepo) put(a entity.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[a.ID] = a
}

func (r *fakeAppointmentRepo) get(id string) (entity.Appointment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	return a, ok
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, a *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = fmt.Sprintf("APP%09d", 100000000+r.seq)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.rows[a.ID] = *a
	return nil
}

func (r *fakeAppointmentRepo) FindByID(ctx context.Context, id string) (*entity.Appointment, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.get(id)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *fakeAppointmentRepo) filter(keep func(a *entity.Appointment) bool) []entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Appointment
	for _, a := range r.rows {
		if keep(&a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (r *fakeAppointmentRepo) FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Appointment, error) {
	return r.filter(func(a *entity.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *fakeAppointmentRepo) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	return r.filter(func(a *entity.Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *fakeAppointmentRepo) FindCompletedByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	rows := r.filter(func(a *entity.Appointment) bool {
		return a.PatientID == patientID && a.Status == entity.AppointmentStatusCompleted
	})
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	return rows, nil
}

func (r *fakeAppointmentRepo) FindByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, rng entity.AppointmentRange) ([]entity.Appointment, error) {
	if r.rangeErr != nil {
		return nil, r.rangeErr
	}
	from, to := rng.From.Format(slot.DateLayout), rng.To.Format(slot.DateLayout)
	return r.filter(func(a *entity.Appointment) bool {
		d := a.DateString()
		if a.DoctorID != doctorID || d < from || d > to {
			return false
		}
		return !rng.BlockingOnly || a.IsBlocking()
	}), nil
}

func (r *fakeAppointmentRepo) CountByDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int64, error) {
	day := date.Format(slot.DateLayout)
	rows := r.filter(func(a *entity.Appointment) bool { return a.DoctorID == doctorID && a.DateString() == day })
	return int64(len(rows)), nil
}

func (r *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id string, from []entity.AppointmentStatus, to entity.AppointmentStatus, notes *string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok || !hasStatus(from, a.Status) {
		return 0, nil
	}
	a.Status = to
	if notes != nil {
		a.Notes = *notes
	}
	r.rows[id] = a
	return 1, nil
}

func (r *fakeAppointmentRepo) UpdateNotes(ctx context.Context, id string, from []entity.AppointmentStatus, notes string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok || !hasStatus(from, a.Status) {
		return 0, nil
	}
	a.Notes = notes
	r.rows[id] = a
	return 1, nil
}

func (r *fakeAppointmentRepo) Delete(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

func hasStatus(list []entity.AppointmentStatus, s entity.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fakeLocker serialises fn per doctor and day like the Redis lock does.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	err   error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: map[string]*sync.Mutex{}}
}

func (l *fakeLocker) WithDayLock(ctx context.Context, doctorID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	if l.err != nil {
		return l.err
	}
	key := doctorID.String() + date.Format(slot.DateLayout)
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uuid.UUID]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: email already registered", apperror.ErrConflict)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

type fakeRoleRepo struct{}

func (fakeRoleRepo) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	switch name {
	case entity.RoleAdmin:
		return &entity.Role{ID: entity.RoleIDAdmin, RoleName: name}, nil
	case entity.RoleDoctor:
		return &entity.Role{ID: entity.RoleIDDoctor, RoleName: name}, nil
	case entity.RolePatient:
		return &entity.Role{ID: entity.RoleIDPatient, RoleName: name}, nil
	}
	return nil, nil
}

type fakeOfficeRepo struct {
	offices   map[string]*entity.Office
	createErr error
}

func (r *fakeOfficeRepo) Create(ctx context.Context, tx *gorm.DB, office *entity.Office) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.offices[office.Code] = office
	return nil
}

func (r *fakeOfficeRepo) FindByCode(ctx context.Context, tx *gorm.DB, code string) (*entity.Office, error) {
	return r.offices[code], nil
}

type fakeDoctorProfileRepo struct {
	profiles []*entity.DoctorProfile
}

func (r *fakeDoctorProfileRepo) Create(ctx context.Context, tx *gorm.DB, p *entity.DoctorProfile) error {
	r.profiles = append(r.profiles, p)
	return nil
}

func (r *fakeDoctorProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.DoctorProfile, error) {
	for _, p := range r.profiles {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

type fakePatientProfileRepo struct {
	profiles []*entity.PatientProfile
}

func (r *fakePatientProfileRepo) Create(ctx context.Context, tx *gorm.DB, p *entity.PatientProfile) error {
	r.profiles = append(r.profiles, p)
	return nil
}

type fakeServiceRepo struct {
	services map[uuid.UUID][]entity.DoctorService
	err      error
}

func (r *fakeServiceRepo) FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.DoctorService, error) {
	return r.services[doctorID], nil
}

func (r *fakeServiceRepo) ReplaceAll(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, services []entity.DoctorService) error {
	if r.err != nil {
		return r.err
	}
	r.services[doctorID] = services
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]bool
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]bool{}}
}

func tokenKey(tokenID string, refresh bool) string {
	if refresh {
		return "refresh:" + tokenID
	}
	return "access:" + tokenID
}

func (r *fakeTokenRepo) Store(ctx context.Context, userID uuid.UUID, tokenID string, refresh bool, ttl time.Duration) error {
	r.tokens[tokenKey(tokenID, refresh)] = true
	return nil
}

func (r *fakeTokenRepo) Exists(ctx context.Context, userID uuid.UUID, tokenID string, refresh bool) (bool, error) {
	return r.tokens[tokenKey(tokenID, refresh)], nil
}

func (r *fakeTokenRepo) Revoke(ctx context.Context, tokenID string, refresh bool) error {
	delete(r.tokens, tokenKey(tokenID, refresh))
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type auditEntry struct {
	action   string
	entityID string
	oldValue interface{}
	newValue interface{}
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *fakeAudit) record(action, entityID string, oldValue, newValue interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, entityID: entityID, oldValue: oldValue, newValue: newValue})
	return nil
}

func (a *fakeAudit) LogCreate(ctx context.Context, userID *uuid.UUID, action, entityName, entityID string, newValue interface{}) error {
	return a.record(action, entityID, nil, newValue)
}

func (a *fakeAudit) LogUpdate(ctx context.Context, userID *uuid.UUID, action, entityName, entityID string, oldValue, newValue interface{}) error {
	return a.record(action, entityID, oldValue, newValue)
}

func (a *fakeAudit) LogDelete(ctx context.Context, userID *uuid.UUID, action, entityName, entityID string, oldValue interface{}) error {
	return a.record(action, entityID, oldValue, nil)
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.action
	}
	return out
}

// fakeChat is a connector and a shared message store. Every session sees
// the same messages.
type fakeChat struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID]bool
	messages   map[string]*chat.Message
	members    map[string]map[uuid.UUID]bool
	seq        int
	connectErr error
	sendErr    error
	setErr     error
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		sessions: map[uuid.UUID]bool{},
		messages: map[string]*chat.Message{},
		members:  map[string]map[uuid.UUID]bool{},
	}
}

func (c *fakeChat) Connect(ctx context.Context, userID uuid.UUID) (chat.Handle, error) {
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	c.mu.Lock()
	c.sessions[userID] = true
	c.mu.Unlock()
	return &fakeHandle{chat: c, userID: userID}, nil
}

func (c *fakeChat) Session(ctx context.Context, userID uuid.UUID) (chat.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sessions[userID] {
		return nil, chat.ErrNotConnected
	}
	return &fakeHandle{chat: c, userID: userID}, nil
}

func (c *fakeChat) Disconnect(ctx context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, userID)
	return nil
}

func (c *fakeChat) status(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.messages[id]; ok && m.CustomData != nil {
		return m.CustomData.Status
	}
	return ""
}

type fakeHandle struct {
	chat   *fakeChat
	userID uuid.UUID
}

func (h *fakeHandle) UserID() uuid.UUID { return h.userID }

func (h *fakeHandle) Send(ctx context.Context, msg *chat.Message) (*chat.Message, error) {
	c := h.chat
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	stored := *msg
	if msg.CustomData != nil {
		data := *msg.CustomData
		stored.CustomData = &data
	}
	stored.ID = fmt.Sprintf("msg-%d", c.seq)
	stored.SenderID = h.userID
	stored.CreatedAt = time.Now()
	stored.Recipients = nil
	c.messages[stored.ID] = &stored

	joined := c.members[msg.ConversationID]
	if joined == nil {
		joined = map[uuid.UUID]bool{}
		c.members[msg.ConversationID] = joined
	}
	joined[h.userID] = true
	for _, id := range msg.Recipients {
		joined[id] = true
	}
	out := stored
	return &out, nil
}

func (h *fakeHandle) Get(ctx context.Context, messageID string) (*chat.Message, error) {
	c := h.chat
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.messages[messageID]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	out := *m
	if m.CustomData != nil {
		data := *m.CustomData
		out.CustomData = &data
	}
	return &out, nil
}

func (h *fakeHandle) SetAppointmentStatus(ctx context.Context, messageID, status string) (*chat.Message, error) {
	c := h.chat
	if c.setErr != nil {
		return nil, c.setErr
	}
	c.mu.Lock()
	m, ok := c.messages[messageID]
	if !ok {
		c.mu.Unlock()
		return nil, chat.ErrMessageNotFound
	}
	if m.CustomData == nil {
		c.mu.Unlock()
		return nil, chat.ErrNotAppointment
	}
	m.CustomData.Status = status
	c.mu.Unlock()
	return h.Get(ctx, messageID)
}

func (h *fakeHandle) History(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	c := h.chat
	c.mu.Lock()
	var ids []string
	for id, m := range c.messages {
		if m.ConversationID == conversationID {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()
	sort.Strings(ids)

	var out []chat.Message
	for _, id := range ids {
		m, err := h.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (h *fakeHandle) Members(ctx context.Context, conversationID string) ([]uuid.UUID, error) {
	c := h.chat
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, 0, len(c.members[conversationID]))
	for id := range c.members[conversationID] {
		out = append(out, id)
	}
	return out, nil
}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollector("usecase_test")
}
