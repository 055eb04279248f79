package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/domain/baseline"
	"github.com/llmwatch/llmwatch/internal/domain/incident"
	"github.com/llmwatch/llmwatch/internal/domain/interaction"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
	"github.com/llmwatch/llmwatch/internal/providers"
)

// MockAnomalyRepository is an in-memory implementation of anomaly.Repository
type MockAnomalyRepository struct {
	mu          sync.Mutex
	Records     map[int64]*anomaly.Record
	NextID      int64
	CreateError error
}

func NewMockAnomalyRepository() *MockAnomalyRepository {
	return &MockAnomalyRepository{
		Records: make(map[int64]*anomaly.Record),
		NextID:  1,
	}
}

func (m *MockAnomalyRepository) Create(ctx context.Context, record *anomaly.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	record.ID = m.NextID
	record.CreatedAt = time.Now()
	m.NextID++
	m.Records[record.ID] = record
	return record.ID, nil
}

func (m *MockAnomalyRepository) GetByID(ctx context.Context, id int64) (*anomaly.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.Records[id]
	if !ok {
		return nil, errors.NotFound("Anomaly")
	}
	return record, nil
}

func (m *MockAnomalyRepository) List(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*anomaly.Record
	for _, r := range m.Records {
		if filter.MetricName != "" && r.MetricName != filter.MetricName {
			continue
		}
		if filter.Severity != "" && r.Severity != filter.Severity {
			continue
		}
		if filter.Direction != "" && r.Direction != filter.Direction {
			continue
		}
		if filter.PatternID != "" && r.PatternID != filter.PatternID {
			continue
		}
		if !filter.Since.IsZero() && r.DetectedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DetectedAt.After(matched[j].DetectedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *MockAnomalyRepository) CountBySeverity(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, r := range m.Records {
		counts[r.Severity]++
	}
	return counts, nil
}

func (m *MockAnomalyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, r := range m.Records {
		if r.DetectedAt.Before(cutoff) {
			delete(m.Records, id)
			removed++
		}
	}
	return removed, nil
}

// MockIncidentRepository is an in-memory implementation of incident.Repository
type MockIncidentRepository struct {
	mu          sync.Mutex
	Incidents   map[string]*incident.Incident
	CreateError error
}

func NewMockIncidentRepository() *MockIncidentRepository {
	return &MockIncidentRepository{
		Incidents: make(map[string]*incident.Incident),
	}
}

func (m *MockIncidentRepository) Create(ctx context.Context, inc *incident.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	now := time.Now()
	inc.CreatedAt = now
	inc.UpdatedAt = now
	m.Incidents[inc.ID] = inc
	return nil
}

func (m *MockIncidentRepository) GetByID(ctx context.Context, id string) (*incident.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.Incidents[id]
	if !ok {
		return nil, errors.NotFound("Incident")
	}
	return inc, nil
}

func (m *MockIncidentRepository) Update(ctx context.Context, inc *incident.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Incidents[inc.ID]; !ok {
		return errors.NotFound("Incident")
	}
	inc.UpdatedAt = time.Now()
	m.Incidents[inc.ID] = inc
	return nil
}

func (m *MockIncidentRepository) List(ctx context.Context, filter incident.Filter, limit, offset int) ([]*incident.Incident, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*incident.Incident
	for _, inc := range m.Incidents {
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && inc.Severity != filter.Severity {
			continue
		}
		if filter.PatternID != "" && inc.PatternID != filter.PatternID {
			continue
		}
		matched = append(matched, inc)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *MockIncidentRepository) FindOpenByPattern(ctx context.Context, patternID string, since time.Time) (*incident.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var newest *incident.Incident
	for _, inc := range m.Incidents {
		if inc.PatternID != patternID || inc.Status == incident.StatusResolved {
			continue
		}
		if inc.CreatedAt.Before(since) {
			continue
		}
		if newest == nil || inc.CreatedAt.After(newest.CreatedAt) {
			newest = inc
		}
	}
	return newest, nil
}

func (m *MockIncidentRepository) CountOpen(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, inc := range m.Incidents {
		if inc.Status != incident.StatusResolved {
			count++
		}
	}
	return count, nil
}

// MockBaselineRepository is an in-memory implementation of baseline.Repository
type MockBaselineRepository struct {
	mu        sync.Mutex
	Snapshots map[int64]*baseline.Snapshot
	NextID    int64
	SaveError error
}

func NewMockBaselineRepository() *MockBaselineRepository {
	return &MockBaselineRepository{
		Snapshots: make(map[int64]*baseline.Snapshot),
		NextID:    1,
	}
}

func (m *MockBaselineRepository) Save(ctx context.Context, snap *baseline.Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return 0, m.SaveError
	}
	snap.ID = m.NextID
	snap.CreatedAt = time.Now()
	m.NextID++
	m.Snapshots[snap.ID] = snap
	return snap.ID, nil
}

func (m *MockBaselineRepository) Latest(ctx context.Context) (*baseline.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *baseline.Snapshot
	for _, snap := range m.Snapshots {
		if latest == nil || snap.ID > latest.ID {
			latest = snap
		}
	}
	return latest, nil
}

func (m *MockBaselineRepository) List(ctx context.Context, limit int) ([]*baseline.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*baseline.Snapshot
	for _, snap := range m.Snapshots {
		all = append(all, snap)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockBaselineRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var maxID int64
	for id := range m.Snapshots {
		if id > maxID {
			maxID = id
		}
	}
	var removed int64
	for id, snap := range m.Snapshots {
		if id != maxID && snap.CapturedAt.Before(cutoff) {
			delete(m.Snapshots, id)
			removed++
		}
	}
	return removed, nil
}

// MockInteractionRepository is an in-memory implementation of interaction.Repository
type MockInteractionRepository struct {
	mu           sync.Mutex
	Interactions map[string]*interaction.Interaction
	CreateError  error
}

func NewMockInteractionRepository() *MockInteractionRepository {
	return &MockInteractionRepository{
		Interactions: make(map[string]*interaction.Interaction),
	}
}

func (m *MockInteractionRepository) Create(ctx context.Context, in *interaction.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	in.CreatedAt = time.Now()
	m.Interactions[in.ID] = in
	return nil
}

func (m *MockInteractionRepository) List(ctx context.Context, limit, offset int) ([]*interaction.Interaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*interaction.Interaction
	for _, in := range m.Interactions {
		all = append(all, in)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *MockInteractionRepository) Stats(ctx context.Context) (*interaction.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &interaction.Stats{}
	var latencySum float64
	var refusals int
	for _, in := range m.Interactions {
		stats.TotalRequests++
		stats.TotalCost += in.CostUSD
		latencySum += in.LatencyMs
		if in.IsRefusal {
			refusals++
		}
	}
	if stats.TotalRequests > 0 {
		stats.AvgLatencyMs = latencySum / float64(stats.TotalRequests)
		stats.RefusalRate = float64(refusals) / float64(stats.TotalRequests)
	}
	return stats, nil
}

func (m *MockInteractionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, in := range m.Interactions {
		if in.CreatedAt.Before(cutoff) {
			delete(m.Interactions, id)
			removed++
		}
	}
	return removed, nil
}

// MockProvider is a scriptable implementation of providers.Provider.
// Responses are served in order; when exhausted the last one repeats.
type MockProvider struct {
	mu        sync.Mutex
	Responses []providers.Completion
	Err       error
	Calls     []string
	Delay     time.Duration
}

func NewMockProvider(responses ...providers.Completion) *MockProvider {
	if len(responses) == 0 {
		responses = []providers.Completion{{
			Text:           "mock response",
			Model:          "mock-model",
			PromptTokens:   10,
			ResponseTokens: 20,
		}}
	}
	return &MockProvider{Responses: responses}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, prompt string) (*providers.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	idx := len(m.Calls) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	completion := m.Responses[idx]
	return &completion, nil
}

// CallCount returns how many completions were requested.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastPromptContains reports whether the most recent prompt includes s.
func (m *MockProvider) LastPromptContains(s string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return false
	}
	return strings.Contains(m.Calls[len(m.Calls)-1], s)
}
