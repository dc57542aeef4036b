package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/models"
	"github.com/prudhvinik1/beacontrace/internal/repositories"
)

// In-memory repository fakes. Each enforces the same contract as its backing
// store, including the atomicity the services rely on.

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
}

var _ repositories.AccountRepository = (*fakeAccountRepo)(nil)

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*models.Account)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email {
			return repositories.ErrConflict
		}
	}
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[uuid.UUID]*models.Device
}

var _ repositories.DeviceRepository = (*fakeDeviceRepo)(nil)

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[uuid.UUID]*models.Device)}
}

func (r *fakeDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	} else if _, exists := r.devices[device.ID]; exists {
		return repositories.ErrConflict
	}
	device.RegisteredAt = time.Now()
	copied := *device
	r.devices[device.ID] = &copied
	return nil
}

func (r *fakeDeviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *device
	return &copied, nil
}

func (r *fakeDeviceRepo) GetDevicesByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var devices []*models.Device
	for _, d := range r.devices {
		if d.OwnerAccountID == accountID {
			copied := *d
			devices = append(devices, &copied)
		}
	}
	return devices, nil
}

func (r *fakeDeviceRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return repositories.ErrNotFound
	}
	device.Name = name
	return nil
}

func (r *fakeDeviceRepo) setOwner(id, ownerAccountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return repositories.ErrNotFound
	}
	device.OwnerAccountID = ownerAccountID
	return nil
}

type fakeTransferRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.TransferRequest
	devices  *fakeDeviceRepo
}

var _ repositories.TransferRepository = (*fakeTransferRepo)(nil)

func newFakeTransferRepo(devices *fakeDeviceRepo) *fakeTransferRepo {
	return &fakeTransferRepo{
		requests: make(map[uuid.UUID]*models.TransferRequest),
		devices:  devices,
	}
}

func (r *fakeTransferRepo) Create(ctx context.Context, request *models.TransferRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Same invariant as the partial unique index: one pending per device
	for _, req := range r.requests {
		if req.DeviceID == request.DeviceID && req.Status == models.TransferPending {
			return repositories.ErrConflict
		}
	}
	request.ID = uuid.New()
	request.Status = models.TransferPending
	request.CreatedAt = time.Now()
	copied := *request
	r.requests[request.ID] = &copied
	return nil
}

func (r *fakeTransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (r *fakeTransferRepo) Approve(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if request.Status != models.TransferPending {
		copied := *request
		return &copied, repositories.ErrConflict
	}
	request.Status = models.TransferApproved
	now := time.Now()
	request.ResolvedAt = &now
	if err := r.devices.setOwner(request.DeviceID, request.ToAccountID); err != nil {
		return nil, err
	}
	copied := *request
	return &copied, nil
}

func (r *fakeTransferRepo) Reject(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if request.Status == models.TransferPending {
		request.Status = models.TransferRejected
		now := time.Now()
		request.ResolvedAt = &now
	}
	copied := *request
	return &copied, nil
}

type codeEntry struct {
	code      string
	expiresAt time.Time
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes map[uuid.UUID]codeEntry
}

var _ repositories.VerificationCodeRepository = (*fakeCodeRepo)(nil)

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: make(map[uuid.UUID]codeEntry)}
}

func (r *fakeCodeRepo) Store(ctx context.Context, requestID uuid.UUID, code string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[requestID] = codeEntry{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (r *fakeCodeRepo) Get(ctx context.Context, requestID uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.codes[requestID]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", repositories.ErrNotFound
	}
	return entry.code, nil
}

func (r *fakeCodeRepo) Consume(ctx context.Context, requestID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, requestID)
	return nil
}

type fakeSightingRepo struct {
	mu        sync.Mutex
	sightings []*models.Sighting
	nextID    int64
}

var _ repositories.SightingRepository = (*fakeSightingRepo)(nil)

func newFakeSightingRepo() *fakeSightingRepo {
	return &fakeSightingRepo{}
}

func (r *fakeSightingRepo) Append(ctx context.Context, sighting *models.Sighting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	sighting.ID = r.nextID
	sighting.ReceivedAt = time.Now()
	copied := *sighting
	r.sightings = append(r.sightings, &copied)
	return nil
}

func (r *fakeSightingRepo) Latest(ctx context.Context, deviceID uuid.UUID) (*models.Sighting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.Sighting
	for _, s := range r.sightings {
		if s.DeviceID != deviceID {
			continue
		}
		if latest == nil || s.ObservedAt.After(latest.ObservedAt) ||
			(s.ObservedAt.Equal(latest.ObservedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeSightingRepo) Since(ctx context.Context, deviceID uuid.UUID, cutoff, afterObservedAt time.Time, afterID int64, limit int) ([]*models.Sighting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.Sighting
	for _, s := range r.sightings {
		if s.DeviceID != deviceID || s.ObservedAt.Before(cutoff) {
			continue
		}
		if s.ObservedAt.Before(afterObservedAt) ||
			(s.ObservedAt.Equal(afterObservedAt) && s.ID <= afterID) {
			continue
		}
		copied := *s
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ObservedAt.Equal(matched[j].ObservedAt) {
			return matched[i].ObservedAt.Before(matched[j].ObservedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeSightingRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := make(map[uuid.UUID]int64)
	for _, s := range r.sightings {
		cur, ok := latest[s.DeviceID]
		if !ok {
			latest[s.DeviceID] = s.ID
			continue
		}
		var curSighting *models.Sighting
		for _, c := range r.sightings {
			if c.ID == cur {
				curSighting = c
			}
		}
		if s.ObservedAt.After(curSighting.ObservedAt) ||
			(s.ObservedAt.Equal(curSighting.ObservedAt) && s.ID > cur) {
			latest[s.DeviceID] = s.ID
		}
	}

	var kept []*models.Sighting
	var pruned int64
	for _, s := range r.sightings {
		if s.ObservedAt.Before(olderThan) && latest[s.DeviceID] != s.ID {
			pruned++
			continue
		}
		kept = append(kept, s)
	}
	r.sightings = kept
	return pruned, nil
}

type fakeChatSession struct {
	record models.ChatSession
	roles  map[models.ChatRole]string
	closed bool
	msgs   []models.ChatMessage
}

type fakeChatRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*fakeChatSession
	byDevice map[uuid.UUID]uuid.UUID
}

var _ repositories.ChatRepository = (*fakeChatRepo)(nil)

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		sessions: make(map[uuid.UUID]*fakeChatSession),
		byDevice: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *fakeChatRepo) CreateSession(ctx context.Context, deviceID uuid.UUID) (*models.ChatSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID, ok := r.byDevice[deviceID]; ok {
		return r.compose(r.sessions[existingID]), false, nil
	}
	session := &fakeChatSession{
		record: models.ChatSession{
			ID:        uuid.New(),
			DeviceID:  deviceID,
			CreatedAt: time.Now(),
		},
		roles: make(map[models.ChatRole]string),
	}
	r.sessions[session.record.ID] = session
	r.byDevice[deviceID] = session.record.ID
	return r.compose(session), true, nil
}

func (r *fakeChatRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.compose(session), nil
}

func (r *fakeChatRepo) ClaimRole(ctx context.Context, sessionID uuid.UUID, role models.ChatRole, pseudonym string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if _, taken := session.roles[role]; taken {
		return false, nil
	}
	session.roles[role] = pseudonym
	return true, nil
}

func (r *fakeChatRepo) AppendMessage(ctx context.Context, sessionID uuid.UUID, msg *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return repositories.ErrNotFound
	}
	session.msgs = append(session.msgs, *msg)
	return nil
}

func (r *fakeChatRepo) Messages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	msgs := make([]models.ChatMessage, len(session.msgs))
	copy(msgs, session.msgs)
	return msgs, nil
}

func (r *fakeChatRepo) Close(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if session.closed {
		return false, nil
	}
	session.closed = true
	return true, nil
}

func (r *fakeChatRepo) ReleaseDevice(ctx context.Context, deviceID, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Conditional delete, matching the Redis compare-and-delete: a binding
	// already rebound to a newer session is left alone.
	if r.byDevice[deviceID] == sessionID {
		delete(r.byDevice, deviceID)
	}
	return nil
}

func (r *fakeChatRepo) compose(session *fakeChatSession) *models.ChatSession {
	composed := session.record
	composed.OwnerPseudonym = session.roles[models.RoleOwner]
	composed.FinderPseudonym = session.roles[models.RoleFinder]
	composed.Closed = session.closed
	return &composed
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

var _ repositories.SessionRepository = (*fakeSessionRepo)(nil)

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, repositories.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.AccountID == accountID {
			delete(r.sessions, id)
		}
	}
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	codes map[uuid.UUID][]string
}

var _ Notifier = (*fakeNotifier)(nil)

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: make(map[uuid.UUID][]string)}
}

func (n *fakeNotifier) NotifyVerificationCode(ctx context.Context, accountID uuid.UUID, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[accountID] = append(n.codes[accountID], code)
	return nil
}

func (n *fakeNotifier) lastCode(accountID uuid.UUID) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	codes := n.codes[accountID]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}
