package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/repository"
	"github.com/GTDGit/lumina_api/internal/sse"
	"github.com/GTDGit/lumina_api/internal/utils"
)

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// ---- users & sessions ----

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*models.User{}}
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Username, username) {
			c := *u
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Username, user.Username) {
			return fmt.Errorf("username %q: %w", user.Username, utils.ErrConflict)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = t0
	c := *user
	f.byID[user.ID] = &c
	return nil
}

func (f *fakeUsers) PromoteToAdmin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsAdmin = true
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]models.Session{}}
}

func (f *fakeSessions) Save(_ context.Context, sess *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.Token] = *sess
	return nil
}

func (f *fakeSessions) Get(_ context.Context, token string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

// ---- products ----

type fakeProducts struct {
	mu         sync.Mutex
	items      map[int]*models.Product
	nextID     int
	referenced map[int]bool
	failUpdate error
}

func newFakeProducts(ps ...models.Product) *fakeProducts {
	f := &fakeProducts{items: map[int]*models.Product{}, referenced: map[int]bool{}}
	for i := range ps {
		p := ps[i]
		if p.CreatedAt.IsZero() {
			p.CreatedAt = t0.Add(time.Duration(p.ID) * time.Minute)
		}
		f.items[p.ID] = &p
		f.nextID = max(f.nextID, p.ID)
	}
	return f
}

func (f *fakeProducts) snapshot(id int) models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakeProducts) sorted() []models.Product {
	out := make([]models.Product, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeProducts) List(context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(), nil
}

func (f *fakeProducts) GetByID(_ context.Context, id int) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *p
	return &c, nil
}

func (f *fakeProducts) Related(_ context.Context, p *models.Product, limit int) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, q := range f.sorted() {
		if q.ID == p.ID {
			continue
		}
		sameBrand := p.Brand != nil && strings.EqualFold(q.BrandName(), *p.Brand)
		if strings.EqualFold(q.Category, p.Category) || sameBrand {
			out = append(out, q)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = t0.Add(time.Hour)
	c := *p
	f.items[p.ID] = &c
	return nil
}

func (f *fakeProducts) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	if _, ok := f.items[p.ID]; !ok {
		return sql.ErrNoRows
	}
	c := *p
	f.items[p.ID] = &c
	return nil
}

func (f *fakeProducts) UpdateFlashSale(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	cur.IsFlashSale = p.IsFlashSale
	cur.FlashSalePrice = p.FlashSalePrice
	cur.FlashSaleEnds = p.FlashSaleEnds
	cur.FlashSaleMarketingText = p.FlashSaleMarketingText
	return nil
}

func (f *fakeProducts) UpdateMarketingCopy(_ context.Context, id int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	cur.MarketingCopy = &text
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	if f.referenced[id] {
		return fmt.Errorf("product %d is referenced: %w", id, utils.ErrConflict)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeProducts) RandomUnposted(context.Context) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.items))
	for id, p := range f.items {
		if p.ChannelPostedAt == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Ints(ids)
	c := *f.items[ids[0]]
	return &c, nil
}

func (f *fakeProducts) Latest(context.Context) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted()
	if len(all) == 0 {
		return nil, sql.ErrNoRows
	}
	return &all[0], nil
}

func (f *fakeProducts) MarkPosted(_ context.Context, id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	cur.ChannelPostedAt = &at
	return nil
}

// ---- orders ----

type fakeOrders struct {
	mu       sync.Mutex
	products *fakeProducts
	orders   map[int]*models.Order
	nextID   int
}

func newFakeOrders(products *fakeProducts) *fakeOrders {
	return &fakeOrders{products: products, orders: map[int]*models.Order{}}
}

func (f *fakeOrders) Create(_ context.Context, order *models.Order, lines []repository.OrderLine, price repository.PriceFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products.mu.Lock()
	defer f.products.mu.Unlock()

	// validate everything before mutating, like a rolled back transaction
	for _, line := range lines {
		p, ok := f.products.items[line.ProductID]
		if !ok {
			return &repository.LineError{ProductID: line.ProductID, Err: utils.ErrNotFound}
		}
		if p.Stock != nil && *p.Stock < line.Quantity {
			return &repository.LineError{ProductID: line.ProductID, Err: utils.ErrInsufficientStock}
		}
	}

	f.nextID++
	order.ID = f.nextID
	order.Status = models.OrderStatusNew
	order.CreatedAt = t0
	order.TotalAmount = 0
	order.Items = nil
	for i, line := range lines {
		p := f.products.items[line.ProductID]
		if p.Stock != nil {
			left := *p.Stock - line.Quantity
			p.Stock = &left
		}
		unit := price(p)
		order.TotalAmount += unit * line.Quantity
		order.Items = append(order.Items, models.OrderItem{
			ID: i + 1, OrderID: order.ID, ProductID: p.ID, Quantity: line.Quantity, PriceAtPurchase: unit,
		})
	}
	c := *order
	f.orders[order.ID] = &c
	return nil
}

func (f *fakeOrders) List(_ context.Context, filter repository.OrderFilter) (*repository.OrderListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if filter.Status == nil || o.Status == *filter.Status {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return &repository.OrderListResult{Orders: out, TotalItems: len(out), Page: 1, Limit: 50}, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeOrders) GetByID(_ context.Context, id int) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *o
	return &c, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id int, status models.OrderStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	o.Status = status
	c := *o
	return &c, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []int
	changed []models.OrderStatus
}

var _ sse.OrderNotifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) NotifyOrderCreated(o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, o.ID)
}

func (n *recordingNotifier) NotifyOrderStatusChanged(o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, o.Status)
}

// ---- channel ----

type fakePosts struct {
	mu    sync.Mutex
	posts []models.ChannelPost
}

func (f *fakePosts) Create(_ context.Context, post *models.ChannelPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post.ID = len(f.posts) + 1
	post.CreatedAt = t0
	f.posts = append(f.posts, *post)
	return nil
}

func (f *fakePosts) ListRecent(_ context.Context, limit int) ([]models.ChannelPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ChannelPost{}
	for i := len(f.posts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.posts[i])
	}
	return out, nil
}

type sentPhoto struct {
	URL     string
	Caption string
}

type fakePublisher struct {
	err  error
	sent []sentPhoto
}

func (f *fakePublisher) SendPhoto(_ context.Context, photoURL, caption string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentPhoto{URL: photoURL, Caption: caption})
	return fmt.Sprintf("%d", 100+len(f.sent)), nil
}

type fakeCopywriter struct {
	content   *models.MarketingContent
	text      string
	err       error
	textCalls int
}

func (f *fakeCopywriter) Generate(context.Context, *models.Product, time.Time) (*models.MarketingContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.content
	return &c, nil
}

func (f *fakeCopywriter) FlashSaleText(context.Context, *models.Product, int, int) (string, error) {
	f.textCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// ---- images & AI ----

type fakeImages struct {
	saved int
	err   error
}

func (f *fakeImages) Save(context.Context, *UploadedImage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved++
	return fmt.Sprintf("/uploads/img-%d.png", f.saved), nil
}

type fakeAnalyzer struct {
	result *ProductAnalysis
}

func (f *fakeAnalyzer) Analyze(context.Context, *UploadedImage) *ProductAnalysis {
	if f.result == nil {
		return FallbackAnalysis()
	}
	c := *f.result
	return &c
}

type fakeLLM struct {
	json    string
	text    string
	err     error
	prompts []string
}

func (f *fakeLLM) CompleteJSON(_ context.Context, prompt string, _ float64) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.json, f.err
}

func (f *fakeLLM) Complete(_ context.Context, _, prompt string, _ float64) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

type fakeLabels struct {
	out   *rekognition.DetectLabelsOutput
	err   error
	input *rekognition.DetectLabelsInput
}

func (f *fakeLabels) DetectLabels(_ context.Context, in *rekognition.DetectLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.input = in
	return f.out, f.err
}

type fakePutter struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

var errBoom = errors.New("boom")
