// Package memstore is an in-memory implementation of the outbound repository
// ports. It backs the standalone server mode and the tests; Fail injects
// per-operation errors.
package memstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"intake_server/core/domain"
)

// Operation names accepted by Fail.
const (
	OpFindByEmail    = "politician.find_by_email"
	OpFindByAlias    = "politician.find_by_alias"
	OpFindByHint     = "campaign.find_by_hint"
	OpSearchSimilar  = "campaign.search_similar"
	OpListWithVector = "campaign.list_with_vector"
	OpGetOrCreate    = "campaign.get_or_create"
	OpExists         = "message.exists"
	OpCountBySender  = "message.count_by_sender"
	OpCreateMessage  = "message.create"
	OpCreateCampaign = "campaign.create"
	OpCreateTemplate = "template.create"
)

type campaignRow struct {
	domain.Campaign
	vector []float32
}

// Store holds politicians, campaigns, messages and reply templates.
type Store struct {
	mu          sync.Mutex
	politicians []*domain.Politician
	campaigns   []*campaignRow
	messages    []*domain.StoredMessage
	templates   []*domain.ReplyTemplate
	nextID      int64
	failures    map[string]error
	calls       map[string]int
}

func New() *Store {
	return &Store{
		nextID:   1000,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Fail makes every later call of op return err. A nil err clears the failure.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.failures[op]
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddPolitician seeds a politician and returns it with an id assigned.
func (s *Store) AddPolitician(p domain.Politician) *domain.Politician {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.politicians = append(s.politicians, &p)
	return &p
}

// AddCampaign seeds a campaign with an optional reference vector.
func (s *Store) AddCampaign(c domain.Campaign, vector []float32) *domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	if c.Status == "" {
		c.Status = domain.CampaignActive
	}
	c.HasReferenceVector = vector != nil
	s.campaigns = append(s.campaigns, &campaignRow{Campaign: c, vector: vector})
	out := c
	return &out
}

// CampaignsBySlug counts stored campaigns with slug.
func (s *Store) CampaignsBySlug(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.campaigns {
		if c.Slug == slug {
			n++
		}
	}
	return n
}

// Messages returns a copy of the stored messages.
func (s *Store) Messages() []domain.StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StoredMessage, len(s.messages))
	for i, m := range s.messages {
		out[i] = *m
	}
	return out
}

// --- politicians ---

func (s *Store) FindActiveByEmail(_ context.Context, email string) (*domain.Politician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpFindByEmail); err != nil {
		return nil, err
	}
	for _, p := range s.sortedPoliticians() {
		if p.Active && p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) FindActiveByAlias(_ context.Context, email string) (*domain.Politician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpFindByAlias); err != nil {
		return nil, err
	}
	for _, p := range s.sortedPoliticians() {
		if !p.Active {
			continue
		}
		for _, alias := range p.AdditionalEmails {
			if alias == email {
				cp := *p
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) sortedPoliticians() []*domain.Politician {
	out := append([]*domain.Politician(nil), s.politicians...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetByID(_ context.Context, id int64) (*domain.Politician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.politicians {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) List(_ context.Context, filter *domain.PoliticianFilter) ([]*domain.Politician, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Politician
	for _, p := range s.sortedPoliticians() {
		if filter != nil && filter.ActiveOnly && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	total := len(out)
	if filter != nil {
		out = page(out, filter.Limit, filter.Offset)
	}
	return out, total, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- campaigns ---

// Campaigns exposes the campaign side of the store under the CampaignRepository method names.
func (s *Store) Campaigns() *CampaignView { return &CampaignView{s: s} }

// Templates exposes the reply template side of the store.
func (s *Store) Templates() *TemplateView { return &TemplateView{s: s} }

// CampaignView implements out.CampaignRepository.
type CampaignView struct{ s *Store }

func (v *CampaignView) sorted() []*campaignRow {
	out := append([]*campaignRow(nil), v.s.campaigns...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *CampaignView) FindByHint(_ context.Context, hint string) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpFindByHint); err != nil {
		return nil, err
	}
	needle := strings.ToLower(hint)
	for _, c := range v.sorted() {
		if !c.Status.Classifiable() {
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), needle) || strings.Contains(strings.ToLower(c.Slug), needle) {
			cp := c.Campaign
			return &cp, nil
		}
	}
	return nil, nil
}

func (v *CampaignView) SearchSimilar(_ context.Context, embedding []float32, limit int, minSimilarity float64) ([]domain.CampaignCandidate, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSearchSimilar); err != nil {
		return nil, err
	}
	var out []domain.CampaignCandidate
	for _, c := range v.sorted() {
		if !c.Status.Classifiable() || c.vector == nil {
			continue
		}
		sim := cosine(embedding, c.vector)
		if sim < minSimilarity {
			continue
		}
		out = append(out, domain.CampaignCandidate{Campaign: c.Campaign, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *CampaignView) ListWithReferenceVector(_ context.Context, limit int) ([]*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpListWithVector); err != nil {
		return nil, err
	}
	var out []*domain.Campaign
	for _, c := range v.sorted() {
		if c.Status.Classifiable() && c.vector != nil {
			cp := c.Campaign
			out = append(out, &cp)
		}
	}
	return page(out, limit, 0), nil
}

func (v *CampaignView) GetBySlug(_ context.Context, slug string) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range v.sorted() {
		if c.Slug == slug {
			cp := c.Campaign
			return &cp, nil
		}
	}
	return nil, nil
}

func (v *CampaignView) GetOrCreate(_ context.Context, nc *domain.NewCampaign) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetOrCreate); err != nil {
		return nil, err
	}
	for _, c := range s.campaigns {
		if c.Slug == nc.Slug {
			cp := c.Campaign
			return &cp, nil
		}
	}
	return v.insert(nc), nil
}

func (v *CampaignView) insert(nc *domain.NewCampaign) *domain.Campaign {
	s := v.s
	created := nc.CreatedBy
	row := &campaignRow{Campaign: domain.Campaign{
		ID:          s.id(),
		Name:        nc.Name,
		Slug:        nc.Slug,
		Description: nc.Description,
		Status:      nc.Status,
		CreatedBy:   &created,
		CreatedAt:   time.Now().UTC(),
	}}
	s.campaigns = append(s.campaigns, row)
	cp := row.Campaign
	return &cp
}

func (v *CampaignView) GetByID(_ context.Context, id int64) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if c.ID == id {
			cp := c.Campaign
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v *CampaignView) List(_ context.Context, limit, offset int) ([]*domain.Campaign, int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Campaign
	for _, c := range v.sorted() {
		cp := c.Campaign
		out = append(out, &cp)
	}
	return page(out, limit, offset), len(out), nil
}

func (v *CampaignView) Create(_ context.Context, nc *domain.NewCampaign) (*domain.Campaign, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCreateCampaign); err != nil {
		return nil, err
	}
	for _, c := range s.campaigns {
		if c.Slug == nc.Slug {
			return nil, domain.ErrDuplicate
		}
	}
	return v.insert(nc), nil
}

func (v *CampaignView) Stats(_ context.Context, recentSince time.Time) ([]*domain.CampaignStats, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.CampaignStats
	for _, c := range v.sorted() {
		st := &domain.CampaignStats{CampaignID: c.ID, Name: c.Name, Slug: c.Slug, Status: string(c.Status)}
		var sum float64
		for _, m := range s.messages {
			if m.CampaignID != c.ID {
				continue
			}
			st.MessageCount++
			sum += m.Confidence
			if !m.ReceivedAt.Before(recentSince) {
				st.RecentCount++
			}
		}
		if st.MessageCount > 0 {
			st.AvgConfidence = sum / float64(st.MessageCount)
		}
		out = append(out, st)
	}
	return out, nil
}

// --- messages ---

// MessageView implements out.MessageRepository.
type MessageView struct{ s *Store }

// MessageStore exposes the message side of the store.
func (s *Store) MessageStore() *MessageView { return &MessageView{s: s} }

func (v *MessageView) ExistsByExternalID(_ context.Context, externalID, channelSource string) (bool, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpExists); err != nil {
		return false, err
	}
	for _, m := range s.messages {
		if m.ExternalID == externalID && m.ChannelSource == channelSource {
			return true, nil
		}
	}
	return false, nil
}

func (v *MessageView) CountBySender(_ context.Context, sender domain.SenderIdentity, politicianID, campaignID int64) (int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCountBySender); err != nil {
		return 0, err
	}
	n := 0
	for _, m := range s.messages {
		if m.SenderHash == sender && m.PoliticianID == politicianID && m.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (v *MessageView) Create(_ context.Context, msg *domain.StoredMessage) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCreateMessage); err != nil {
		return 0, err
	}
	cp := *msg
	cp.ID = s.id()
	s.messages = append(s.messages, &cp)
	return cp.ID, nil
}

// --- reply templates ---

// TemplateView implements out.ReplyTemplateRepository.
type TemplateView struct{ s *Store }

func (v *TemplateView) GetByID(_ context.Context, id int64) (*domain.ReplyTemplate, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v *TemplateView) List(_ context.Context, filter *domain.ReplyTemplateFilter) ([]*domain.ReplyTemplate, int, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ReplyTemplate
	for _, t := range s.templates {
		if filter != nil {
			if filter.PoliticianID != nil && t.PoliticianID != *filter.PoliticianID {
				continue
			}
			if filter.CampaignID != nil && t.CampaignID != *filter.CampaignID {
				continue
			}
			if filter.ActiveOnly && !t.Active {
				continue
			}
		}
		cp := *t
		out = append(out, &cp)
	}
	total := len(out)
	if filter != nil {
		out = page(out, filter.Limit, filter.Offset)
	}
	return out, total, nil
}

func (v *TemplateView) Create(_ context.Context, t *domain.ReplyTemplate) (*domain.ReplyTemplate, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCreateTemplate); err != nil {
		return nil, err
	}
	cp := *t
	cp.ID = s.id()
	cp.CreatedAt = time.Now().UTC()
	s.templates = append(s.templates, &cp)
	out := cp
	return &out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
