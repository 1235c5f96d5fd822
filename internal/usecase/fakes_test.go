package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/DRSN-tech/visual-commerce/internal/domain"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
)

var errBoom = errors.New("boom")

// callLog считает обращения к внешним зависимостям пайплайна.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakePicker struct {
	log     *callLog
	granted bool
	image   *domain.PickedImage
	err     error
}

func (f *fakePicker) RequestPermission(context.Context) (bool, error) {
	f.log.add("permission")
	return f.granted, nil
}

func (f *fakePicker) Pick(context.Context) (*domain.PickedImage, error) {
	f.log.add("pick")
	return f.image, f.err
}

type fakeCompressor struct {
	log *callLog
	out []byte
	err error
}

func (f *fakeCompressor) Compress(context.Context, *domain.PickedImage) ([]byte, error) {
	f.log.add("compress")
	return f.out, f.err
}

type fakeUploader struct {
	log  *callLog
	got  *UploadImageReq
	err  error
	path string
}

func (f *fakeUploader) Upload(_ context.Context, req *UploadImageReq) (*domain.UploadedImage, error) {
	f.log.add("upload")
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return domain.NewUploadedImage(f.path, "https://cdn.example.com/"+f.path), nil
}

type fakeClassifier struct {
	log    *callLog
	labels []domain.ClassificationLabel
	err    error
}

func (f *fakeClassifier) Classify(context.Context, string) (*domain.ClassificationResult, error) {
	f.log.add("classify")
	if f.err != nil {
		return nil, f.err
	}
	return domain.NewClassificationResult(f.labels), nil
}

type fakeEmbedder struct {
	log    *callLog
	vector *domain.EmbeddingVector
	err    error
}

func (f *fakeEmbedder) Embed(context.Context, string) (*domain.EmbeddingVector, error) {
	f.log.add("embed")
	return f.vector, f.err
}

type fakeSearcher struct {
	log     *callLog
	matches []domain.SearchMatch
	err     error
}

func (f *fakeSearcher) Search(context.Context, *domain.EmbeddingVector, int) ([]domain.SearchMatch, error) {
	f.log.add("search")
	return f.matches, f.err
}

type fakeKeywordSearcher struct {
	log      *callLog
	keywords []string
	matches  []domain.SearchMatch
	outcome  domain.StepOutcome
}

func (f *fakeKeywordSearcher) Search(_ context.Context, keyword string) ([]domain.SearchMatch, domain.StepOutcome) {
	f.log.add("fallback")
	f.keywords = append(f.keywords, keyword)
	return f.matches, f.outcome
}

type fakeProductRepo struct {
	products    []ProductInfo
	err         error
	lastKeyword string
	lastLimit   int
	getCalls    [][]int64
}

func (f *fakeProductRepo) GetProductsInfo(_ context.Context, ids []int64) ([]ProductInfo, error) {
	f.getCalls = append(f.getCalls, ids)
	if f.err != nil {
		return nil, f.err
	}

	var res []ProductInfo
	for _, id := range ids {
		for _, p := range f.products {
			if p.ID == id {
				res = append(res, p)
			}
		}
	}
	return res, nil
}

func (f *fakeProductRepo) SearchByName(_ context.Context, keyword string, limit int) ([]ProductInfo, error) {
	f.lastKeyword, f.lastLimit = keyword, limit
	if f.err != nil {
		return nil, f.err
	}

	var res []ProductInfo
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(keyword)) {
			res = append(res, p)
		}
	}
	return res, nil
}

type fakeEmbeddingRepo struct {
	points []domain.ScoredPoint
	err    error
	got    *VectorSearchReq
}

func (f *fakeEmbeddingRepo) Search(_ context.Context, req *VectorSearchReq) ([]domain.ScoredPoint, error) {
	f.got = req
	return f.points, f.err
}

type fakeCacheRepo struct {
	mu       sync.Mutex
	products map[int64]ProductInfo
	err      error
	stored   chan []ProductInfo
}

func (f *fakeCacheRepo) GetProducts(_ context.Context, ids []int64) (map[int64]ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	res := make(map[int64]ProductInfo)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (f *fakeCacheRepo) SetProducts(_ context.Context, products []ProductInfo) error {
	if f.stored != nil {
		f.stored <- products
	}
	return nil
}

type fakeOrderRepo struct {
	orders     map[string]*domain.Order
	getErr     error
	attachErr  error
	updateErr  error
	mutations  int
	lockedByPI []string
}

func newFakeOrderRepo(orders ...*domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, e.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetByPaymentIntentIDForUpdate(_ context.Context, paymentIntentID string) (*domain.Order, error) {
	f.lockedByPI = append(f.lockedByPI, paymentIntentID)
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, o := range f.orders {
		if o.PaymentIntentID != nil && *o.PaymentIntentID == paymentIntentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, e.ErrOrderNotFound
}

func (f *fakeOrderRepo) AttachPaymentIntent(_ context.Context, orderID string, paymentIntentID string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return e.ErrOrderNotFound
	}
	if o.HasPaymentIntent() {
		return e.ErrPaymentIntentExists
	}
	f.mutations++
	id := paymentIntentID
	o.PaymentIntentID = &id
	o.PaymentStatus = domain.PaymentStatusPending
	return nil
}

func (f *fakeOrderRepo) UpdatePaymentStatus(_ context.Context, orderID string, ps domain.PaymentStatus, s domain.OrderStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return e.ErrOrderNotFound
	}
	f.mutations++
	o.PaymentStatus, o.Status = ps, s
	return nil
}

type fakeOutboxRepo struct {
	events []*OutboxEvent
	err    error
}

func (f *fakeOutboxRepo) Create(_ context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeOutboxRepo) GetAndMarkAsProcessing(context.Context, int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkAsProcessed(context.Context, int64) error { return nil }

func (f *fakeOutboxRepo) ReturnToPending(context.Context, int64) error { return nil }

type fakeWebhookEvents struct {
	processed map[string]bool
	marks     int
	checkErr  error
}

func newFakeWebhookEvents() *fakeWebhookEvents {
	return &fakeWebhookEvents{processed: make(map[string]bool)}
}

func (f *fakeWebhookEvents) IsProcessed(_ context.Context, eventID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.processed[eventID], nil
}

func (f *fakeWebhookEvents) MarkProcessed(_ context.Context, eventID string) error {
	f.processed[eventID] = true
	f.marks++
	return nil
}

// fakeTxManager выполняет fn без транзакции. Откат не моделируется.
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakePaymentProvider struct {
	requests []*CreateProviderIntentReq
	err      error
}

func (f *fakePaymentProvider) CreatePaymentIntent(_ context.Context, req *CreateProviderIntentReq) (*ProviderIntent, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	id := "pi_" + strings.ReplaceAll(req.OrderID, "-", "")[:8]
	return NewProviderIntent(id, id+"_secret_x"), nil
}
