package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/auth"
	"github.com/okian/commitquest/internal/adapters/http/api"
	"github.com/okian/commitquest/internal/adapters/repository"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/domain/dedupe"
	"github.com/okian/commitquest/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const testSecret = "hook-secret"

type fixture struct {
	t      *testing.T
	svc    *service.Service
	store  *repository.Store
	tokens *auth.Tokens
	router http.Handler
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := repository.Open(context.Background(), repository.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := service.New(store,
		service.WithDeduper(dedupe.NewMemory()),
		service.WithAllowedRepos([]string{"org/repo"}),
	)
	tokens, err := auth.NewTokens("jwt-secret", "commitquest")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	base := []api.Option{api.WithWebhookSecret(testSecret)}
	srv := api.NewServer(svc, tokens, append(base, opts...)...)
	return &fixture{t: t, svc: svc, store: store, tokens: tokens, router: srv.Router()}
}

func (f *fixture) user(githubID, name string) (model.User, string) {
	f.t.Helper()
	u, err := f.svc.RegisterUser(context.Background(), service.Registration{
		GitHubID: githubID, Login: name, Name: name, Email: name + "@example.com",
	})
	if err != nil {
		f.t.Fatalf("register: %v", err)
	}
	tok, err := f.tokens.Issue(u.ID, u.Role)
	if err != nil {
		f.t.Fatalf("issue: %v", err)
	}
	return u, tok
}

func (f *fixture) admin(githubID, name string) (model.User, string) {
	f.t.Helper()
	u, tok := f.user(githubID, name)
	if _, err := f.svc.PromoteAdmin(context.Background(), u.Email); err != nil {
		f.t.Fatalf("promote: %v", err)
	}
	return u, tok
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) hook(event, delivery string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set(api.HeaderEvent, event)
	req.Header.Set(api.HeaderDelivery, delivery)
	if signature != "" {
		req.Header.Set(api.HeaderSignature, signature)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func push(repo, senderID string) []byte {
	return []byte(fmt.Sprintf(`{"repository":{"full_name":%q},"sender":{"id":%s,"login":"x"},"commits":[{"id":"a"},{"id":"b"}]}`, repo, senderID))
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(rec.Body.Bytes(), &v)
	return v
}

func TestSignature(t *testing.T) {
	Convey("Given a secret and a body", t, func() {
		secret, body := []byte("s3cr3t"), []byte(`{"a":1}`)
		sig := api.Sign(secret, body)

		Convey("Then the computed signature verifies", func() {
			So(sig, ShouldStartWith, "sha256=")
			So(api.VerifySignature(secret, body, sig), ShouldBeTrue)
		})

		Convey("Then tampering is detected", func() {
			So(api.VerifySignature(secret, []byte(`{"a":2}`), sig), ShouldBeFalse)
			So(api.VerifySignature([]byte("other"), body, sig), ShouldBeFalse)
			So(api.VerifySignature(secret, body, "sha1=abc"), ShouldBeFalse)
			So(api.VerifySignature(secret, body, "sha256=zz"), ShouldBeFalse)
			So(api.VerifySignature(secret, body, ""), ShouldBeFalse)
		})
	})
}

func TestWebhookRoute(t *testing.T) {
	Convey("Given a server with a webhook secret and a registered user", t, func() {
		f := newFixture(t)
		u, _ := f.user("77", "octo")

		Convey("When a signed push from an allowed repository arrives", func() {
			body := push("org/repo", "77")
			rec := f.hook("push", "del-1", body, api.Sign([]byte(testSecret), body))

			Convey("Then XP is credited", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				res := decode[service.WebhookResult](rec)
				So(res.Success, ShouldBeTrue)
				So(res.XPAdded, ShouldEqual, 20)
				stored, _ := f.store.UserByID(context.Background(), u.ID)
				So(stored.XP, ShouldEqual, 20)
			})

			Convey("And the same delivery is redelivered", func() {
				again := f.hook("push", "del-1", body, api.Sign([]byte(testSecret), body))

				Convey("Then it is acknowledged without another credit", func() {
					So(again.Code, ShouldEqual, http.StatusOK)
					res := decode[service.WebhookResult](again)
					So(res.Duplicate, ShouldBeTrue)
					So(res.XPAdded, ShouldEqual, 0)
					stored, _ := f.store.UserByID(context.Background(), u.ID)
					So(stored.XP, ShouldEqual, 20)
				})
			})
		})

		Convey("When a push from a repository outside the allow-list arrives", func() {
			body := push("org/other", "77")
			rec := f.hook("push", "del-2", body, api.Sign([]byte(testSecret), body))

			Convey("Then it is answered 200 with no XP", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				res := decode[service.WebhookResult](rec)
				So(res.Success, ShouldBeFalse)
				So(res.XPAdded, ShouldEqual, 0)
			})
		})

		Convey("When the signature is wrong", func() {
			body := push("org/repo", "77")
			rec := f.hook("push", "del-3", body, api.Sign([]byte("nope"), body))

			Convey("Then the delivery is rejected with 401", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
				stored, _ := f.store.UserByID(context.Background(), u.ID)
				So(stored.XP, ShouldEqual, 0)
			})
		})

		Convey("When the signature is missing", func() {
			rec := f.hook("push", "del-4", push("org/repo", "77"), "")
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the body is not a JSON object", func() {
			body := []byte(`[1,2]`)
			rec := f.hook("push", "del-5", body, api.Sign([]byte(testSecret), body))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	Convey("Given a server with a regular user", t, func() {
		f := newFixture(t)
		u, tok := f.user("1", "ada")

		Convey("Then /api/me requires a token", func() {
			rec := f.do(http.MethodGet, "/api/me", "", nil)
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode[map[string]string](rec)["code"], ShouldEqual, "unauthorized")
		})

		Convey("Then /api/me returns the caller's progression", func() {
			rec := f.do(http.MethodGet, "/api/me", tok, nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			p := decode[map[string]any](rec)
			So(p["id"], ShouldEqual, u.ID.String())
			So(p["level"], ShouldEqual, 1.0)
		})

		Convey("Then the calendar rejects bad query parameters", func() {
			So(f.do(http.MethodGet, "/api/me/calendar?days=abc", tok, nil).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodGet, "/api/me/calendar?end=2024-13-01", tok, nil).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodGet, "/api/me/calendar?days=14&end=2024-06-12", tok, nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then an unknown user id is 404 and a malformed one 400", func() {
			So(f.do(http.MethodGet, "/api/users/"+uuid.NewString(), tok, nil).Code, ShouldEqual, http.StatusNotFound)
			So(f.do(http.MethodGet, "/api/users/not-a-uuid", tok, nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then admin routes are forbidden", func() {
			rec := f.do(http.MethodGet, "/api/admin/users", tok, nil)
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the user is promoted after the token was issued", func() {
			_, err := f.svc.PromoteAdmin(context.Background(), u.Email)
			So(err, ShouldBeNil)

			Convey("Then admin routes open without a new token", func() {
				So(f.do(http.MethodGet, "/api/admin/users", tok, nil).Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestLeaderboardRoute(t *testing.T) {
	Convey("Given two users with XP", t, func() {
		f := newFixture(t)
		f.user("1", "ada")
		f.user("2", "bob")
		b1 := push("org/repo", "2")
		f.hook("push", "x-1", b1, api.Sign([]byte(testSecret), b1))

		Convey("Then the public leaderboard ranks them by XP", func() {
			rec := f.do(http.MethodGet, "/api/leaderboard", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			rows := decode[[]repository.LeaderboardRow](rec)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Name, ShouldEqual, "bob")
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[1].Rank, ShouldEqual, 2)
		})

		Convey("Then limit is honoured and validated", func() {
			rows := decode[[]repository.LeaderboardRow](f.do(http.MethodGet, "/api/leaderboard?limit=1", "", nil))
			So(rows, ShouldHaveLength, 1)
			So(f.do(http.MethodGet, "/api/leaderboard?limit=0", "", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodGet, "/api/leaderboard?limit=x", "", nil).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAwayRoutes(t *testing.T) {
	Convey("Given a user and an admin", t, func() {
		f := newFixture(t)
		_, userTok := f.user("1", "ada")
		_, adminTok := f.admin("2", "root")

		Convey("When the user submits a leave request", func() {
			rec := f.do(http.MethodPost, "/api/away", userTok, service.AwayRequest{
				Reason: "vacation", StartDate: "2024-06-10", EndDate: "2024-06-11",
			})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			p := decode[model.AwayPeriod](rec)
			So(p.Status, ShouldEqual, model.AwayPending)

			Convey("Then the admin sees it and can approve it once", func() {
				all := decode[[]repository.AwayWithOwner](f.do(http.MethodGet, "/api/admin/away", adminTok, nil))
				So(all, ShouldHaveLength, 1)
				So(all[0].OwnerName, ShouldEqual, "ada")

				path := "/api/admin/away/" + p.ID.String()
				first := f.do(http.MethodPatch, path, adminTok, map[string]string{"status": "APPROVED"})
				So(first.Code, ShouldEqual, http.StatusOK)
				So(decode[model.AwayPeriod](first).Status, ShouldEqual, model.AwayApproved)

				second := f.do(http.MethodPatch, path, adminTok, map[string]string{"status": "REJECTED"})
				So(second.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("Then the user cannot decide it", func() {
				rec := f.do(http.MethodPatch, "/api/admin/away/"+p.ID.String(), userTok, map[string]string{"status": "APPROVED"})
				So(rec.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("Then an unknown period is 404", func() {
			rec := f.do(http.MethodPatch, "/api/admin/away/"+uuid.NewString(), adminTok, map[string]string{"status": "APPROVED"})
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then an inverted range is 400", func() {
			rec := f.do(http.MethodPost, "/api/away", userTok, service.AwayRequest{
				Reason: "x", StartDate: "2024-06-11", EndDate: "2024-06-10",
			})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGoalRoutes(t *testing.T) {
	Convey("Given a user and an admin", t, func() {
		f := newFixture(t)
		u, userTok := f.user("1", "ada")
		_, adminTok := f.admin("2", "root")

		Convey("When the admin assigns a goal", func() {
			rec := f.do(http.MethodPost, "/api/admin/goals", adminTok, service.GoalRequest{
				UserID: u.ID.String(), Description: "ship it", Target: 3,
			})
			So(rec.Code, ShouldEqual, http.StatusCreated)

			Convey("Then the user sees it", func() {
				goals := decode[[]model.WeeklyGoal](f.do(http.MethodGet, "/api/goals", userTok, nil))
				So(goals, ShouldHaveLength, 1)
				So(goals[0].Description, ShouldEqual, "ship it")
			})
		})
	})
}

func TestMessageRoutes(t *testing.T) {
	Convey("Given a server allowing one chat post per burst", t, func() {
		f := newFixture(t, api.WithChatRate(0.001, 1))
		_, tok := f.user("1", "ada")

		Convey("When the user posts twice in a row", func() {
			first := f.do(http.MethodPost, "/api/messages", tok, map[string]string{"content": "hello"})
			second := f.do(http.MethodPost, "/api/messages", tok, map[string]string{"content": "again"})

			Convey("Then the second post is rate limited", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
			})

			Convey("Then the feed lists the first message with its author", func() {
				msgs := decode[[]repository.MessageWithAuthor](f.do(http.MethodGet, "/api/messages", tok, nil))
				So(msgs, ShouldHaveLength, 1)
				So(msgs[0].Content, ShouldEqual, "hello")
				So(msgs[0].User.Name, ShouldEqual, "ada")
			})
		})

		Convey("Then a bad cursor is 400", func() {
			So(f.do(http.MethodGet, "/api/messages?after=yesterday", tok, nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then an empty message is 400", func() {
			So(f.do(http.MethodPost, "/api/messages", tok, map[string]string{"content": "   "}).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When rejected posts precede a valid one", func() {
			empty := f.do(http.MethodPost, "/api/messages", tok, map[string]string{"content": ""})
			malformed := f.do(http.MethodPost, "/api/messages", tok, []int{1, 2})
			valid := f.do(http.MethodPost, "/api/messages", tok, map[string]string{"content": "finally"})

			Convey("Then they do not use up the rate budget", func() {
				So(empty.Code, ShouldEqual, http.StatusBadRequest)
				So(malformed.Code, ShouldEqual, http.StatusBadRequest)
				So(valid.Code, ShouldEqual, http.StatusCreated)
			})
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given a server", t, func() {
		f := newFixture(t)

		Convey("Then /healthz reports ok", func() {
			rec := f.do(http.MethodGet, "/healthz", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]string](rec)["status"], ShouldEqual, "ok")
		})

		Convey("Then /metrics exposes the registry", func() {
			f.do(http.MethodGet, "/healthz", "", nil)
			rec := f.do(http.MethodGet, "/metrics", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "commitquest_")
		})

		Convey("Then /stats reports counters", func() {
			f.user("1", "ada")
			stats := decode[map[string]any](f.do(http.MethodGet, "/stats", "", nil))
			So(stats["users"], ShouldEqual, 1.0)
		})

		Convey("When the store is closed", func() {
			So(f.store.Close(), ShouldBeNil)
			So(f.do(http.MethodGet, "/healthz", "", nil).Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
