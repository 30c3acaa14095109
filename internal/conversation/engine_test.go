package conversation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/venille/internal/education"
	"github.com/hitoshi/venille/internal/i18n"
	"github.com/hitoshi/venille/internal/model"
	"github.com/hitoshi/venille/internal/repository"
	"github.com/hitoshi/venille/internal/transport"
)

// --- モック定義 ---

type sentMessage struct {
	to   string
	text string
}

// recordingSender はSenderのテスト用モック。
type recordingSender struct {
	mu       sync.Mutex
	messages []sentMessage
	sendFunc func(to, text string) error
	// block がtrueの場合は送信結果が返らないトランスポートを模してctxの終了まで待つ。
	block bool
}

func (s *recordingSender) Send(ctx context.Context, to, text string) error {
	s.mu.Lock()
	s.messages = append(s.messages, sentMessage{to: to, text: text})
	block := s.block
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.sendFunc != nil {
		return s.sendFunc(to, text)
	}
	return nil
}

func (s *recordingSender) to(jid string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		if m.to == jid {
			out = append(out, m.text)
		}
	}
	return out
}

func (s *recordingSender) last(jid string) string {
	msgs := s.to(jid)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// memoryUsers はUserRepositoryのインメモリ実装。
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*model.User)}
}

func (r *memoryUsers) FindByJID(_ context.Context, jid string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[jid]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUsers) Touch(_ context.Context, jid, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[jid]
	if !ok {
		u = &model.User{JID: jid, FirstSeen: time.Now()}
		r.users[jid] = u
	}
	u.DisplayName = displayName
	u.LastSeen = time.Now()
	return nil
}

func (r *memoryUsers) update(jid string, fn func(u *model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if u, ok := r.users[jid]; ok {
		fn(u)
	}
	return nil
}

func (r *memoryUsers) UpdateLanguage(_ context.Context, jid, language string) error {
	return r.update(jid, func(u *model.User) { u.Language = language })
}

func (r *memoryUsers) UpdatePeriod(_ context.Context, jid string, last, next time.Time) error {
	return r.update(jid, func(u *model.User) {
		u.LastPeriod = &last
		u.NextPeriod = &next
	})
}

func (r *memoryUsers) UpdateReminder(_ context.Context, jid string, wants bool) error {
	return r.update(jid, func(u *model.User) { u.WantsReminder = wants })
}

func (r *memoryUsers) ListReminderCandidates(context.Context) ([]*model.User, error) {
	return nil, nil
}

func (r *memoryUsers) get(jid string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[jid]
}

// memorySymptoms はSymptomRepositoryのインメモリ実装。
type memorySymptoms struct {
	mu     sync.Mutex
	rows   []*model.Symptom
	addErr error
}

func (r *memorySymptoms) Add(_ context.Context, jid, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	r.rows = append(r.rows, &model.Symptom{JID: jid, Text: text, LoggedAt: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)})
	return nil
}

func (r *memorySymptoms) ListRecent(_ context.Context, jid string, limit int) ([]*model.Symptom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Symptom
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if r.rows[i].JID == jid {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func (r *memorySymptoms) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// memoryFeedback はFeedbackRepositoryのインメモリ実装。
type memoryFeedback struct {
	mu   sync.Mutex
	rows []*model.Feedback
}

func (r *memoryFeedback) Create(_ context.Context, fb *model.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, fb)
	return nil
}

// memoryOrders はOrderRepositoryのインメモリ実装。
type memoryOrders struct {
	mu   sync.Mutex
	rows []*model.Order
}

func (r *memoryOrders) Create(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, o)
	return nil
}

// stubEducation はeducation.Providerのテスト用モック。
type stubEducation struct {
	articles []education.Article
}

func (s stubEducation) Latest(context.Context, int, int) []education.Article {
	return s.articles
}

// compile-time interface checks
var (
	_ repository.UserRepository     = (*memoryUsers)(nil)
	_ repository.SymptomRepository  = (*memorySymptoms)(nil)
	_ repository.FeedbackRepository = (*memoryFeedback)(nil)
	_ repository.OrderRepository    = (*memoryOrders)(nil)
	_ education.Provider            = stubEducation{}
)

// --- テストハーネス ---

const testJID = "2348012345678@c.us"

type harness struct {
	engine   *Engine
	sender   *recordingSender
	users    *memoryUsers
	symptoms *memorySymptoms
	feedback *memoryFeedback
	orders   *memoryOrders
	logs     *bytes.Buffer
	catalog  *i18n.Catalog
}

func newHarness(t *testing.T, mutate func(o *Options)) *harness {
	t.Helper()
	h := &harness{
		sender:   &recordingSender{},
		users:    newMemoryUsers(),
		symptoms: &memorySymptoms{},
		feedback: &memoryFeedback{},
		orders:   &memoryOrders{},
		logs:     &bytes.Buffer{},
		catalog:  i18n.Default(),
	}
	opts := Options{
		Sender:          h.sender,
		Users:           h.users,
		Symptoms:        h.symptoms,
		Feedback:        h.feedback,
		Orders:          h.orders,
		Catalog:         h.catalog,
		Logger:          slog.New(slog.NewJSONHandler(h.logs, nil)),
		SalesContactURL: "https://wa.me/2348000000000",
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.engine = NewEngine(opts)
	return h
}

// say はメッセージを1件処理し、そのメッセージに対する返信を返す。
func (h *harness) say(t *testing.T, body string) string {
	t.Helper()
	before := len(h.sender.to(testJID))
	h.engine.Handle(context.Background(), transport.InboundMessage{From: testJID, Body: body, Name: "Amina"})
	after := h.sender.to(testJID)
	if len(after) != before+1 {
		t.Fatalf("1件のメッセージに対する返信数 = %d, want 1", len(after)-before)
	}
	return after[len(after)-1]
}

func (h *harness) en(key i18n.Key, args ...any) string {
	return h.catalog.Text("English", key, args...)
}

func (h *harness) step(t *testing.T) Step {
	t.Helper()
	s, _ := h.engine.Sessions.Load(context.Background(), testJID)
	return s.Step
}

// --- テスト ---

func TestEngine_TrackPeriodFlow(t *testing.T) {
	h := newHarness(t, nil)

	if got := h.say(t, "hi"); got != h.en(i18n.Menu) {
		t.Errorf("挨拶への返信 = %q, want メニュー", got)
	}
	if got := h.say(t, "1"); got != h.en(i18n.TrackPrompt) {
		t.Errorf("1への返信 = %q, want 日付の入力案内", got)
	}
	got := h.say(t, "12/05/2025")
	if !strings.Contains(got, "09/06/2025") {
		t.Errorf("日付入力への返信に予測日09/06/2025が含まれていない: %q", got)
	}
	if h.step(t) != StepAskReminder {
		t.Errorf("Step = %q, want %q", h.step(t), StepAskReminder)
	}
	if got := h.say(t, "yes"); got != h.en(i18n.ReminderYes) {
		t.Errorf("yesへの返信 = %q, want ReminderYes", got)
	}

	u := h.users.get(testJID)
	if u == nil || u.LastPeriod == nil || u.NextPeriod == nil {
		t.Fatal("生理日が保存されていない")
	}
	if !u.WantsReminder {
		t.Error("WantsReminder = false, want true")
	}
	if want := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC); !u.NextPeriod.Equal(want) {
		t.Errorf("NextPeriod = %v, want %v", u.NextPeriod, want)
	}
	if h.step(t) != StepIdle {
		t.Errorf("Step = %q, want idle", h.step(t))
	}
}

func TestEngine_ReminderDeclined(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "1")
	h.say(t, "12/05/2025")

	if got := h.say(t, "no thanks"); got != h.en(i18n.ReminderNo) {
		t.Errorf("返信 = %q, want ReminderNo", got)
	}
	if h.users.get(testJID).WantsReminder {
		t.Error("WantsReminder = true, want false")
	}
}

func TestEngine_DateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  i18n.Key
		step  Step
	}{
		{"形式不一致", "last week", i18n.InvalidDate, StepAskDate},
		{"存在しない日付", "31/02/2025", i18n.NotValidDate, StepAskDate},
		{"3桁の年", "12/05/202", i18n.NotValidDate, StepAskDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.say(t, "track my period")
			if got := h.say(t, tt.input); got != h.en(tt.want) {
				t.Errorf("返信 = %q, want %q", got, h.en(tt.want))
			}
			if h.step(t) != tt.step {
				t.Errorf("Step = %q, want %q", h.step(t), tt.step)
			}
		})
	}
}

func TestEngine_TwoDigitYear(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "1")
	if got := h.say(t, "1/5/25"); !strings.Contains(got, "29/05/2025") {
		t.Errorf("返信に29/05/2025が含まれていない: %q", got)
	}
}

func TestEngine_MenuVariants(t *testing.T) {
	inputs := []string{"1", "1.", "1)", " 1 ", "Track my period", "TRACK MY PERIOD!"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			h := newHarness(t, nil)
			if got := h.say(t, in); got != h.en(i18n.TrackPrompt) {
				t.Errorf("%q への返信 = %q, want TrackPrompt", in, got)
			}
		})
	}
}

func TestEngine_FallbackOnUnknownInput(t *testing.T) {
	h := newHarness(t, nil)
	for _, in := range []string{"9", "hiking", "what?"} {
		if got := h.say(t, in); got != h.en(i18n.Fallback) {
			t.Errorf("%q への返信 = %q, want Fallback", in, got)
		}
	}
}

func TestEngine_InterruptResetsFlow(t *testing.T) {
	for _, in := range []string{"Hello there", "menu", "BACK", "good morning"} {
		t.Run(in, func(t *testing.T) {
			h := newHarness(t, nil)
			h.say(t, "4")
			if h.step(t) != StepOrder {
				t.Fatalf("Step = %q, want %q", h.step(t), StepOrder)
			}
			if got := h.say(t, in); got != h.en(i18n.Menu) {
				t.Errorf("返信 = %q, want Menu", got)
			}
			if h.step(t) != StepIdle {
				t.Errorf("Step = %q, want idle", h.step(t))
			}
		})
	}
}

func TestEngine_SymptomLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "2")

	if got := h.say(t, "cramps"); got != h.en(i18n.SavedSymptom) {
		t.Errorf("返信 = %q, want SavedSymptom", got)
	}
	h.say(t, "<b>headache</b>")
	if got := h.say(t, "done"); got != h.en(i18n.SymptomsDone, 2, "s") {
		t.Errorf("返信 = %q, want %q", got, h.en(i18n.SymptomsDone, 2, "s"))
	}
	if h.symptoms.count() != 2 {
		t.Errorf("保存件数 = %d, want 2", h.symptoms.count())
	}
	if h.symptoms.rows[1].Text != "headache" {
		t.Errorf("サニタイズ後の症状 = %q, want headache", h.symptoms.rows[1].Text)
	}
}

func TestEngine_SymptomLoopSingularAndEmpty(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "2")
	h.say(t, "tired")
	if got := h.say(t, "done"); got != h.en(i18n.SymptomsDone, 1, "") {
		t.Errorf("返信 = %q, want 単数形", got)
	}

	h.say(t, "2")
	if got := h.say(t, "done"); got != h.en(i18n.SymptomsNothingSaved) {
		t.Errorf("返信 = %q, want SymptomsNothingSaved", got)
	}

	h.say(t, "2")
	if got := h.say(t, "cancel"); got != h.en(i18n.SymptomsCancel) {
		t.Errorf("返信 = %q, want SymptomsCancel", got)
	}
	if h.step(t) != StepIdle {
		t.Errorf("Step = %q, want idle", h.step(t))
	}
}

func TestEngine_SymptomStoreFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.symptoms.addErr = errors.New("db down")
	h.say(t, "2")

	if got := h.say(t, "cramps"); got != h.en(i18n.SymptomPrompt) {
		t.Errorf("返信 = %q, want SymptomPrompt", got)
	}
	h.symptoms.addErr = nil
	if got := h.say(t, "done"); got != h.en(i18n.SymptomsNothingSaved) {
		t.Errorf("保存失敗分がカウントされている: %q", got)
	}
	if !strings.Contains(h.logs.String(), "症状の保存に失敗しました") {
		t.Error("保存失敗がログに記録されていない")
	}
}

func TestEngine_Education(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Education = stubEducation{articles: []education.Article{{Title: "Know your status", Link: "https://example.org/a"}}}
	})
	if got := h.say(t, "3"); got != h.en(i18n.EduTopics) {
		t.Errorf("返信 = %q, want EduTopics", got)
	}
	if got := h.say(t, "7"); got != h.en(i18n.EduTopics) {
		t.Errorf("範囲外トピックへの返信 = %q, want EduTopics", got)
	}
	if h.step(t) != StepEdu {
		t.Errorf("Step = %q, want %q", h.step(t), StepEdu)
	}

	got := h.say(t, "1")
	if !strings.HasPrefix(got, h.en(i18n.EduTopic(1))) {
		t.Errorf("返信がトピック1の本文で始まっていない: %q", got)
	}
	if !strings.Contains(got, "• Know your status\n  https://example.org/a") {
		t.Errorf("記事リンクが含まれていない: %q", got)
	}
	if h.step(t) != StepIdle {
		t.Errorf("Step = %q, want idle", h.step(t))
	}
}

func TestEngine_EducationWithoutProvider(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "3")
	if got := h.say(t, "5"); got != h.en(i18n.EduTopic(5)) {
		t.Errorf("返信 = %q, want EduTopic(5)", got)
	}
}

func TestEngine_ChangeLanguage(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "7")

	got := h.say(t, "hausa")
	if want := h.catalog.Text("Hausa", i18n.LanguageSet, "Hausa"); got != want {
		t.Errorf("返信 = %q, want %q", got, want)
	}
	if lang := h.users.get(testJID).Language; lang != "Hausa" {
		t.Errorf("Language = %q, want Hausa", lang)
	}
	if got := h.say(t, "xyz"); got != h.catalog.Text("Hausa", i18n.Fallback) {
		t.Errorf("以降の返信がハウサ語でない: %q", got)
	}

	// ハウサ語の肯定応答 "e"
	h.say(t, "1")
	h.say(t, "12/05/2025")
	h.say(t, "e")
	if !h.users.get(testJID).WantsReminder {
		t.Error("ハウサ語の肯定応答が認識されていない")
	}
}

func TestEngine_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "7")
	got := h.say(t, "Klingon")
	if want := h.en(i18n.LanguageSet, "Klingon"); got != want {
		t.Errorf("返信 = %q, want %q", got, want)
	}
	if got := h.say(t, "what"); got != h.en(i18n.Fallback) {
		t.Errorf("未知の言語で英語にフォールバックしていない: %q", got)
	}
}

func TestEngine_Feedback(t *testing.T) {
	h := newHarness(t, nil)
	if got := h.say(t, "8"); got != h.en(i18n.FeedbackQ1) {
		t.Errorf("返信 = %q, want FeedbackQ1", got)
	}
	if got := h.say(t, "maybe"); got != h.en(i18n.Fallback) {
		t.Errorf("1/2以外への返信 = %q, want Fallback", got)
	}
	if got := h.say(t, "2."); got != h.en(i18n.FeedbackQ2) {
		t.Errorf("返信 = %q, want FeedbackQ2", got)
	}
	if got := h.say(t, "Pads were too expensive"); got != h.en(i18n.FeedbackThanks) {
		t.Errorf("返信 = %q, want FeedbackThanks", got)
	}

	if len(h.feedback.rows) != 1 {
		t.Fatalf("フィードバック件数 = %d, want 1", len(h.feedback.rows))
	}
	fb := h.feedback.rows[0]
	if fb.JID != testJID || fb.Response1 != "2" || fb.Response2 != "Pads were too expensive" {
		t.Errorf("保存内容 = %+v", fb)
	}
}

func TestEngine_OrderWithVendor(t *testing.T) {
	const vendor = "2348000000000@c.us"
	h := newHarness(t, func(o *Options) { o.VendorRecipient = vendor })

	h.say(t, "order venille pads")
	if got := h.say(t, "abc"); got != h.en(i18n.OrderQuantityInvalid) {
		t.Errorf("返信 = %q, want OrderQuantityInvalid", got)
	}
	if got := h.say(t, "100"); got != h.en(i18n.OrderQuantityInvalid) {
		t.Errorf("100への返信 = %q, want OrderQuantityInvalid", got)
	}

	got := h.say(t, "3 packs please")
	if want := h.en(i18n.OrderConfirmation, 3, "s", "https://wa.me/2348000000000"); got != want {
		t.Errorf("返信 = %q, want %q", got, want)
	}

	vendorMsgs := h.sender.to(vendor)
	if len(vendorMsgs) != 1 {
		t.Fatalf("販売担当への通知数 = %d, want 1", len(vendorMsgs))
	}
	if !strings.Contains(vendorMsgs[0], "Amina") || !strings.Contains(vendorMsgs[0], testJID) {
		t.Errorf("通知に顧客情報が含まれていない: %q", vendorMsgs[0])
	}
	if len(h.orders.rows) != 1 || h.orders.rows[0].Quantity != 3 || !h.orders.rows[0].VendorNotified {
		t.Errorf("注文の保存内容が不正: %+v", h.orders.rows)
	}
}

func TestEngine_OrderConfirmsCustomerBeforeVendor(t *testing.T) {
	const vendor = "2348000000000@c.us"
	h := newHarness(t, func(o *Options) { o.VendorRecipient = vendor })

	h.say(t, "4")
	h.say(t, "2")

	h.sender.mu.Lock()
	msgs := append([]sentMessage(nil), h.sender.messages...)
	h.sender.mu.Unlock()
	if len(msgs) < 2 {
		t.Fatalf("送信数 = %d, want >= 2", len(msgs))
	}
	last, prev := msgs[len(msgs)-1], msgs[len(msgs)-2]
	if prev.to != testJID || last.to != vendor {
		t.Errorf("送信順 = [%s, %s], want [顧客, 販売担当]", prev.to, last.to)
	}
}

func TestEngine_SendWithoutResultTimesOut(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.SendTimeout = 50 * time.Millisecond })
	h.sender.block = true

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.engine.Handle(context.Background(), transport.InboundMessage{From: testJID, Body: "hi", Name: "Amina"})
		h.engine.Handle(context.Background(), transport.InboundMessage{From: testJID, Body: "1", Name: "Amina"})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("送信結果が返らない場合に処理が戻らなかった")
	}

	if n := len(h.sender.to(testJID)); n != 2 {
		t.Errorf("送信試行数 = %d, want 2", n)
	}
	if !strings.Contains(h.logs.String(), "返信の送信に失敗しました") {
		t.Error("送信タイムアウトがログに記録されていない")
	}
	if got := h.step(t); got != StepAskDate {
		t.Errorf("step = %q, want %q", got, StepAskDate)
	}
}

func TestEngine_OrderVendorFailure(t *testing.T) {
	const vendor = "2348000000000@c.us"
	h := newHarness(t, func(o *Options) { o.VendorRecipient = vendor })
	h.sender.sendFunc = func(to, _ string) error {
		if to == vendor {
			return errors.New("send failed")
		}
		return nil
	}

	h.say(t, "4")
	got := h.say(t, "1")
	if want := h.en(i18n.OrderConfirmation, 1, "", "https://wa.me/2348000000000"); got != want {
		t.Errorf("返信 = %q, want %q", got, want)
	}
	if len(h.orders.rows) != 1 || h.orders.rows[0].VendorNotified {
		t.Errorf("VendorNotified = true, want false: %+v", h.orders.rows)
	}
	if !strings.Contains(h.logs.String(), "販売担当への通知に失敗しました") {
		t.Error("通知失敗がログに記録されていない")
	}
}

func TestEngine_ViewCycle(t *testing.T) {
	h := newHarness(t, nil)
	if got := h.say(t, "5"); got != h.en(i18n.NoPeriod) {
		t.Errorf("返信 = %q, want NoPeriod", got)
	}

	h.say(t, "1")
	h.say(t, "12/05/2025")
	h.say(t, "no")
	if got := h.say(t, "view my cycle"); got != h.en(i18n.CycleInfo, "12/05/2025", "09/06/2025") {
		t.Errorf("返信 = %q", got)
	}
}

func TestEngine_ViewSymptoms(t *testing.T) {
	h := newHarness(t, nil)
	if got := h.say(t, "6"); got != h.en(i18n.NoSymptoms) {
		t.Errorf("返信 = %q, want NoSymptoms", got)
	}

	h.say(t, "2")
	for _, s := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
		h.say(t, s)
	}
	h.say(t, "done")

	got := h.say(t, "6")
	if strings.Contains(got, "a1") {
		t.Errorf("6件目以前の症状が表示されている: %q", got)
	}
	if !strings.Contains(got, "• a6  _(20/05/2025)_") {
		t.Errorf("最新の症状が表示されていない: %q", got)
	}
	if strings.Index(got, "a6") > strings.Index(got, "a2") {
		t.Errorf("新しい順に並んでいない: %q", got)
	}
	if h.step(t) != StepIdle {
		t.Errorf("閲覧でStepが変化した: %q", h.step(t))
	}
}

func TestEngine_UserStoreFailureStillReplies(t *testing.T) {
	h := newHarness(t, nil)
	h.users.err = errors.New("db down")

	if got := h.say(t, "hi"); got != h.en(i18n.Menu) {
		t.Errorf("返信 = %q, want Menu", got)
	}
	if !strings.Contains(h.logs.String(), "ユーザーの更新に失敗しました") {
		t.Error("ユーザー更新失敗がログに記録されていない")
	}
}

func TestEngine_ReplyFailureIsLogged(t *testing.T) {
	h := newHarness(t, nil)
	h.sender.sendFunc = func(string, string) error { return model.ErrNotConnected }

	h.engine.Handle(context.Background(), transport.InboundMessage{From: testJID, Body: "hi"})
	if !strings.Contains(h.logs.String(), "返信の送信に失敗しました") {
		t.Error("返信失敗がログに記録されていない")
	}
}
