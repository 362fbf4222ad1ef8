package ignorelogger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/darynku/ignorelogger"
	"github.com/m-mizutani/gt"
)

type UserCredentials struct {
	Username    string
	Password    string
	ApiKey      string
	DisplayName string
}

type UserSettings struct {
	Theme                string
	Language             string
	NotificationsEnabled bool
	SecretToken          string
}

type UserProfile struct {
	ID          int
	Name        string
	Email       string
	Credentials UserCredentials `log:"ignore"`
	Settings    UserSettings
}

func newProfile() UserProfile {
	return UserProfile{
		ID:    123,
		Name:  "Bob",
		Email: "user@example.com",
		Credentials: UserCredentials{
			Username: "test_user",
			Password: "p",
			ApiKey:   "api_key_123456",
		},
		Settings: UserSettings{
			Theme:                "dark",
			Language:             "ru",
			NotificationsEnabled: true,
			SecretToken:          "notify_token_12345",
		},
	}
}

func TestRedact(t *testing.T) {
	p := ignorelogger.NewPolicy()

	t.Run("scalars pass through", func(t *testing.T) {
		now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		gt.V(t, p.Redact(nil)).Nil()
		gt.V(t, p.Redact("blue")).Equal("blue")
		gt.V(t, p.Redact(42)).Equal(42)
		gt.V(t, p.Redact(17.5)).Equal(17.5)
		gt.V(t, p.Redact(true)).Equal(true)
		gt.V(t, p.Redact(now)).Equal(now)
		gt.V(t, p.Redact(3*time.Second)).Equal(3 * time.Second)
		gt.V(t, p.Redact(json.Number("17.50"))).Equal(json.Number("17.50"))
	})

	t.Run("named scalar keeps its type", func(t *testing.T) {
		type color string
		gt.V(t, p.Redact(color("blue"))).Equal(color("blue"))
	})

	t.Run("no sensitive fields keeps everything in order", func(t *testing.T) {
		type child struct {
			Label string
			Count int
		}
		type parent struct {
			Zeta  string
			Alpha int
			Child child
			Tags  []string
		}

		rec := gt.Cast[ignorelogger.Record](t, p.Redact(parent{
			Zeta:  "z",
			Alpha: 1,
			Child: child{Label: "l", Count: 2},
			Tags:  []string{"x", "y"},
		}))
		gt.V(t, rec.Names()).Equal([]string{"Zeta", "Alpha", "Child", "Tags"})

		c, ok := rec.Get("Child")
		gt.B(t, ok).True()
		gt.V(t, c).Equal(ignorelogger.Record{
			{Name: "Label", Value: "l"},
			{Name: "Count", Value: 2},
		})

		tags, _ := rec.Get("Tags")
		gt.V(t, tags).Equal([]any{"x", "y"})
	})

	t.Run("tagged type field omitted, siblings kept", func(t *testing.T) {
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(newProfile()))
		gt.V(t, rec.Names()).Equal([]string{"ID", "Name", "Email", "Settings"})

		settings, _ := rec.Get("Settings")
		gt.V(t, gt.Cast[ignorelogger.Record](t, settings).Names()).
			Equal([]string{"Theme", "Language", "NotificationsEnabled"})
	})

	t.Run("whole type marked sensitive", func(t *testing.T) {
		type plainProfile struct {
			Name string
			Auth UserCredentials
		}
		p := ignorelogger.NewPolicy(ignorelogger.WithType[UserCredentials]())
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(&plainProfile{
			Name: "Bob",
			Auth: UserCredentials{Password: "p"},
		}))
		gt.V(t, rec.Names()).Equal([]string{"Name"})
	})

	t.Run("sensitive field never emitted as null", func(t *testing.T) {
		raw, err := json.Marshal(p.Redact(newProfile()))
		gt.NoError(t, err)
		gt.S(t, string(raw)).NotContains("Credentials")
		gt.S(t, string(raw)).NotContains("SecretToken")
		gt.S(t, string(raw)).NotContains("notify_token_12345")
		gt.S(t, string(raw)).Contains(`"Name":"Bob"`)
	})

	t.Run("map keys sorted and filtered", func(t *testing.T) {
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(map[string]any{
			"zone":     "eu",
			"password": "x",
			"app":      map[string]string{"token": "t", "name": "demo"},
		}))
		gt.V(t, rec.Names()).Equal([]string{"app", "zone"})
		app, _ := rec.Get("app")
		gt.V(t, app).Equal(ignorelogger.Record{{Name: "name", Value: "demo"}})
	})

	t.Run("map keys printing the same are all kept", func(t *testing.T) {
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(map[any]any{
			1:   "one-int",
			"1": "one-string",
			2:   "two",
		}))
		gt.V(t, rec).Equal(ignorelogger.Record{
			{Name: "1", Value: "one-int"},
			{Name: "1", Value: "one-string"},
			{Name: "2", Value: "two"},
		})
	})

	t.Run("slice of structs", func(t *testing.T) {
		out := gt.Cast[[]any](t, p.Redact([]UserCredentials{{Username: "a", Password: "b"}}))
		gt.V(t, len(out)).Equal(1)
		gt.V(t, gt.Cast[ignorelogger.Record](t, out[0]).Names()).Equal([]string{"Username", "DisplayName"})
	})

	t.Run("nil pointer and interface", func(t *testing.T) {
		type holder struct {
			Ptr   *UserSettings
			Iface any
		}
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(holder{}))
		gt.V(t, rec).Equal(ignorelogger.Record{
			{Name: "Ptr", Value: nil},
			{Name: "Iface", Value: nil},
		})
	})

	t.Run("error becomes message", func(t *testing.T) {
		gt.V(t, p.Redact(errors.New("boom"))).Equal("boom")
	})

	t.Run("bytes are summarised", func(t *testing.T) {
		gt.V(t, p.Redact([]byte("abcd"))).Equal("[binary 4 bytes]")
	})

	t.Run("func and chan fields skipped", func(t *testing.T) {
		type weird struct {
			Fn   func()
			Ch   chan int
			Kept string
		}
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(weird{Fn: func() {}, Ch: make(chan int), Kept: "k"}))
		gt.V(t, rec.Names()).Equal([]string{"Kept"})
	})

	t.Run("unexported fields skipped", func(t *testing.T) {
		type mixed struct {
			Public  string
			private string
		}
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(mixed{Public: "a", private: "b"}))
		gt.V(t, rec.Names()).Equal([]string{"Public"})
	})

	t.Run("embedded struct flattened", func(t *testing.T) {
		type Base struct {
			ID       string
			Password string
		}
		type derived struct {
			Base
			Title string
		}
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(derived{Base: Base{ID: "1", Password: "x"}, Title: "t"}))
		gt.V(t, rec.Names()).Equal([]string{"ID", "Title"})
	})

	t.Run("fields promoted from unexported embedded struct", func(t *testing.T) {
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(newTriggerRequest()))
		gt.V(t, rec.Names()).Equal([]string{"Trigger", "UseCache", "Tags"})

		trigger := gt.Cast[ignorelogger.Record](t, rec[0].Value)
		v, ok := trigger.Get("ID")
		gt.B(t, ok).True()
		gt.V(t, v).Equal("trigger-1")
	})

	t.Run("unexported embedded struct behind a pointer", func(t *testing.T) {
		req := newTriggerRequest()
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(&pointerRequest{input: &req.input, Note: "n"}))
		gt.V(t, rec.Names()).Equal([]string{"Trigger", "UseCache", "Tags", "Note"})
	})

	t.Run("short credential names", func(t *testing.T) {
		type account struct {
			User       string
			Pin        string
			Passphrase string
			Shipping   string
		}
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(account{User: "bob", Pin: "1234", Passphrase: "open sesame", Shipping: "fast"}))
		gt.V(t, rec.Names()).Equal([]string{"User", "Shipping"})
	})

	t.Run("json tag name is checked", func(t *testing.T) {
		type aliased struct {
			Code string `json:"pincode"`
			Kind string
		}
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(aliased{Code: "1234", Kind: "k"}))
		gt.V(t, rec.Names()).Equal([]string{"Kind"})
	})

	t.Run("redacting a record is idempotent", func(t *testing.T) {
		first := p.Redact(newProfile())
		second := p.Redact(first)
		gt.V(t, second).Equal(first)
	})
}

type triggerRequest struct {
	input
}

type pointerRequest struct {
	*input
	Note string
}

type input struct {
	Trigger  *trigger `json:"trigger"`
	UseCache *bool    `json:"use_cache"`
	Tags     []string `json:"tags"`
	count    int
}

type trigger struct {
	ID string `json:"id"`
}

func newTriggerRequest() triggerRequest {
	useCache := true
	return triggerRequest{input{
		Trigger:  &trigger{ID: "trigger-1"},
		UseCache: &useCache,
		Tags:     []string{"k1"},
		count:    1,
	}}
}

type node struct {
	Name string
	Next *node
}

func TestRedactCycle(t *testing.T) {
	p := ignorelogger.NewPolicy()

	n := &node{Name: "a"}
	n.Next = &node{Name: "b", Next: n}

	rec := gt.Cast[ignorelogger.Record](t, p.Redact(n))
	next, _ := rec.Get("Next")
	back, _ := gt.Cast[ignorelogger.Record](t, next).Get("Next")
	gt.V(t, back).Equal(ignorelogger.CyclePlaceholder)

	t.Run("self referencing map", func(t *testing.T) {
		m := map[string]any{"k": "v"}
		m["self"] = m
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(m))
		self, _ := rec.Get("self")
		gt.V(t, self).Equal(ignorelogger.CyclePlaceholder)
	})

	t.Run("shared pointer is not a cycle", func(t *testing.T) {
		shared := &UserSettings{Theme: "dark"}
		type pair struct {
			A *UserSettings
			B *UserSettings
		}
		rec := gt.Cast[ignorelogger.Record](t, p.Redact(pair{A: shared, B: shared}))
		b, _ := rec.Get("B")
		gt.V(t, b).NotEqual(ignorelogger.CyclePlaceholder)
	})
}

func TestRedactMaxDepth(t *testing.T) {
	p := ignorelogger.NewPolicy()

	root := &node{Name: "0"}
	cur := root
	for i := 0; i < ignorelogger.MaxDepth*2; i++ {
		cur.Next = &node{Name: "n"}
		cur = cur.Next
	}

	raw, err := json.Marshal(p.Redact(root))
	gt.NoError(t, err)
	gt.S(t, string(raw)).Contains(ignorelogger.MaxDepthPlaceholder)
}

type panicValuer struct{}

func (panicValuer) LogValue() slog.Value {
	panic("cannot read")
}

func TestRedactFieldReadFailure(t *testing.T) {
	type withBroken struct {
		Before string
		Broken panicValuer
		After  string
	}

	p := ignorelogger.NewPolicy()
	rec := gt.Cast[ignorelogger.Record](t, p.Redact(withBroken{Before: "b", After: "a"}))
	gt.V(t, rec.Names()).Equal([]string{"Before", "After"})

	t.Run("top level failure", func(t *testing.T) {
		gt.V(t, p.Redact(panicValuer{})).Equal(ignorelogger.FailedPlaceholder)
	})

	t.Run("logger survives", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(&buf, p.ReplaceAttr)
		logger.Info("hello", slog.Any("v", withBroken{Before: "b", After: "a"}))
		gt.S(t, buf.String()).Contains(`"Before":"b"`)
	})
}

func TestRedactConcurrent(t *testing.T) {
	p := ignorelogger.NewPolicy()

	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewJSONHandler(&lockedWriter{w: &buf, mu: &mu}, &slog.HandlerOptions{
		ReplaceAttr: p.ReplaceAttr,
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("concurrent", "goroutine", id, "profile", newProfile())
		}(i)
	}
	wg.Wait()

	gt.S(t, buf.String()).Contains(`"Email":"user@example.com"`)
	gt.S(t, buf.String()).NotContains("api_key_123456")
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (x *lockedWriter) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.w.Write(p)
}
