package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/repository"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := repository.Open(context.Background(), repository.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *repository.Store, githubID, name string) model.User {
	t.Helper()
	u, err := s.UpsertUser(context.Background(), model.User{
		GitHubID: githubID,
		Login:    "login-" + githubID,
		Name:     name,
		Email:    name + "@example.com",
	})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return u
}

func credit(s *repository.Store, userID uuid.UUID, xp int64, at time.Time) (model.User, error) {
	return s.Credit(context.Background(), model.ContributionEvent{
		UserID:      userID,
		EventType:   "push",
		Description: "Pushed 1 commit(s)",
		XPDelta:     xp,
		Timestamp:   at,
	})
}

func TestOpen(t *testing.T) {
	Convey("Given an unsupported driver", t, func() {
		_, err := repository.Open(context.Background(), "oracle", "dsn")

		Convey("Then Open fails with ErrUnknownDriver", func() {
			So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
		})
	})

	Convey("Given an in-memory sqlite database", t, func() {
		s := openStore(t)

		Convey("Then it answers pings", func() {
			So(s.Ping(context.Background()), ShouldBeNil)
		})
	})
}

func TestUsers(t *testing.T) {
	Convey("Given a store", t, func() {
		s := openStore(t)
		ctx := context.Background()

		Convey("When a user is upserted", func() {
			u := mustUser(t, s, "1001", "ada")

			Convey("Then defaults are applied", func() {
				So(u.ID, ShouldNotEqual, uuid.Nil)
				So(u.Role, ShouldEqual, model.RoleUser)
				So(u.Level, ShouldEqual, 1)
				So(u.XP, ShouldEqual, 0)
			})

			Convey("And the same GitHub id is upserted again after earning XP", func() {
				_, err := credit(s, u.ID, 120, time.Now())
				So(err, ShouldBeNil)

				again, err := s.UpsertUser(ctx, model.User{GitHubID: "1001", Name: "Ada L", XP: 9999})
				So(err, ShouldBeNil)

				Convey("Then the profile is refreshed and XP is untouched", func() {
					So(again.ID, ShouldEqual, u.ID)
					So(again.Name, ShouldEqual, "Ada L")
					So(again.XP, ShouldEqual, 120)
				})
			})

			Convey("Then it resolves by GitHub id and by id", func() {
				byGH, err := s.UserByGitHubID(ctx, "1001")
				So(err, ShouldBeNil)
				So(byGH.ID, ShouldEqual, u.ID)

				byID, err := s.UserByID(ctx, u.ID)
				So(err, ShouldBeNil)
				So(byID.GitHubID, ShouldEqual, "1001")
			})
		})

		Convey("When resolving an unknown GitHub id", func() {
			_, err := s.UserByGitHubID(ctx, "nope")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
		})

		Convey("When promoting", func() {
			first := mustUser(t, s, "1", "first")
			second := mustUser(t, s, "2", "second")

			Convey("Then an email selects the user", func() {
				u, err := s.PromoteAdmin(ctx, "SECOND@example.com")
				So(err, ShouldBeNil)
				So(u.ID, ShouldEqual, second.ID)
				stored, _ := s.UserByID(ctx, second.ID)
				So(stored.Role, ShouldEqual, model.RoleAdmin)
			})

			Convey("Then an empty email selects the earliest user", func() {
				u, err := s.PromoteAdmin(ctx, "")
				So(err, ShouldBeNil)
				So(u.ID, ShouldEqual, first.ID)
			})

			Convey("Then an unknown email is not found", func() {
				_, err := s.PromoteAdmin(ctx, "ghost@example.com")
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
			})
		})

		Convey("When listing users with goals", func() {
			a := mustUser(t, s, "1", "a")
			b := mustUser(t, s, "2", "b")
			_, _ = credit(s, b.ID, 50, time.Now())
			g, err := s.CreateGoal(ctx, model.WeeklyGoal{UserID: a.ID, Description: "ship", Target: 3, WeekStartDate: time.Now()})
			So(err, ShouldBeNil)

			list, err := s.ListUsers(ctx)
			So(err, ShouldBeNil)

			Convey("Then users are ordered by XP with their pending goal", func() {
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, b.ID)
				So(list[0].PendingGoal, ShouldBeNil)
				So(list[1].PendingGoal, ShouldNotBeNil)
				So(list[1].PendingGoal.ID, ShouldEqual, g.ID)
			})

			n, err := s.CountUsers(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})
	})
}

func TestCredit(t *testing.T) {
	Convey("Given a registered user", t, func() {
		s := openStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "42", "grace")

		Convey("When XP is credited across a level boundary", func() {
			after, err := credit(s, u.ID, 999, time.Now())
			So(err, ShouldBeNil)
			So(after.XP, ShouldEqual, 999)
			So(after.Level, ShouldEqual, 1)

			after, err = credit(s, u.ID, 1, time.Now())
			So(err, ShouldBeNil)

			Convey("Then level follows the XP formula", func() {
				So(after.XP, ShouldEqual, 1000)
				So(after.Level, ShouldEqual, 2)
			})

			Convey("Then the cached XP equals the ledger sum", func() {
				sum, err := s.SumXP(ctx, u.ID)
				So(err, ShouldBeNil)
				So(sum, ShouldEqual, after.XP)
			})
		})

		Convey("When crediting an unknown user", func() {
			_, err := credit(s, uuid.New(), 10, time.Now())

			Convey("Then nothing is appended to the ledger", func() {
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
				n, err := s.CountContributions(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the delta is zero", func() {
			_, err := credit(s, u.ID, 0, time.Now())
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("When the same delivery is credited twice", func() {
			delivery := "gh-delivery-1"
			ev := model.ContributionEvent{
				UserID: u.ID, EventType: "push", Description: "Pushed 1 commit(s)",
				XPDelta: 10, DeliveryID: &delivery,
			}
			_, err := s.Credit(ctx, ev)
			So(err, ShouldBeNil)
			_, err = s.Credit(ctx, ev)

			Convey("Then the second credit is rejected and XP is counted once", func() {
				So(errors.Is(err, repository.ErrDuplicateDelivery), ShouldBeTrue)
				So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
				stored, _ := s.UserByID(ctx, u.ID)
				So(stored.XP, ShouldEqual, 10)
				n, _ := s.CountContributions(ctx)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When events carry no delivery id", func() {
			empty := ""
			_, err := credit(s, u.ID, 10, time.Now())
			So(err, ShouldBeNil)
			_, err = credit(s, u.ID, 10, time.Now())
			So(err, ShouldBeNil)
			_, err = s.Credit(ctx, model.ContributionEvent{UserID: u.ID, EventType: "push", XPDelta: 10, DeliveryID: &empty})
			So(err, ShouldBeNil)

			Convey("Then none of them collide", func() {
				stored, _ := s.UserByID(ctx, u.ID)
				So(stored.XP, ShouldEqual, 30)
			})
		})

		Convey("When racing credits share one delivery id", func() {
			delivery := "gh-delivery-race"
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.Credit(ctx, model.ContributionEvent{
						UserID: u.ID, EventType: "push", XPDelta: 10, DeliveryID: &delivery,
					})
				}()
			}
			wg.Wait()

			Convey("Then exactly one is applied", func() {
				stored, _ := s.UserByID(ctx, u.ID)
				So(stored.XP, ShouldEqual, 10)
				sum, _ := s.SumXP(ctx, u.ID)
				So(sum, ShouldEqual, 10)
			})
		})

		Convey("When many credits race for the same user", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = credit(s, u.ID, 10, time.Now())
				}()
			}
			wg.Wait()

			Convey("Then no increment is lost", func() {
				stored, err := s.UserByID(ctx, u.ID)
				So(err, ShouldBeNil)
				So(stored.XP, ShouldEqual, 200)
				sum, _ := s.SumXP(ctx, u.ID)
				So(sum, ShouldEqual, 200)
			})
		})

		Convey("When reading contributions back", func() {
			base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				_, err := credit(s, u.ID, int64(10*(i+1)), base.Add(time.Duration(i)*time.Hour))
				So(err, ShouldBeNil)
			}

			Convey("Then recent contributions are newest first and bounded", func() {
				recent, err := s.RecentContributions(ctx, u.ID, 3)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 3)
				So(recent[0].XPDelta, ShouldEqual, 50)
				So(recent[2].XPDelta, ShouldEqual, 30)
			})

			Convey("Then contributions in a range are oldest first and end-exclusive", func() {
				got, err := s.ContributionsBetween(ctx, u.ID, base.Add(2*time.Hour), base.Add(4*time.Hour))
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].XPDelta, ShouldEqual, 30)
				So(got[1].XPDelta, ShouldEqual, 40)
			})

			Convey("Then a non-positive limit is rejected", func() {
				_, err := s.RecentContributions(ctx, u.ID, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given users with XP", t, func() {
		s := openStore(t)
		ctx := context.Background()
		a := mustUser(t, s, "1", "a")
		b := mustUser(t, s, "2", "b")
		c := mustUser(t, s, "3", "c")

		_, _ = credit(s, a.ID, 100, time.Now())
		_, _ = credit(s, b.ID, 50, time.Now())
		_, _ = credit(s, b.ID, 50, time.Now())
		_, _ = credit(s, c.ID, 200, time.Now())

		rows, err := s.Leaderboard(ctx, 20)
		So(err, ShouldBeNil)

		Convey("Then rows are ranked by XP, ties by registration order", func() {
			So(len(rows), ShouldEqual, 3)
			So(rows[0].ID, ShouldEqual, c.ID)
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[1].ID, ShouldEqual, a.ID)
			So(rows[2].ID, ShouldEqual, b.ID)
			So(rows[2].Rank, ShouldEqual, 3)
		})

		Convey("Then contribution counts come from the ledger", func() {
			So(rows[1].ContributionCount, ShouldEqual, 1)
			So(rows[2].ContributionCount, ShouldEqual, 2)
		})

		Convey("Then the limit is honored", func() {
			top, err := s.Leaderboard(ctx, 1)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 1)
		})
	})
}

func TestAway(t *testing.T) {
	Convey("Given a user and an admin", t, func() {
		s := openStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "1", "owner")
		admin := mustUser(t, s, "2", "admin")

		p, err := s.CreateAway(ctx, model.AwayPeriod{
			UserID:    u.ID,
			Reason:    "vacation",
			StartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
			Status:    model.AwayApproved,
		})
		So(err, ShouldBeNil)

		Convey("Then a new period is always PENDING", func() {
			So(p.Status, ShouldEqual, model.AwayPending)
		})

		Convey("When the period is approved", func() {
			at := time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)
			decided, err := s.DecideAway(ctx, p.ID, model.AwayApproved, admin.ID, at)
			So(err, ShouldBeNil)

			Convey("Then the decision is recorded", func() {
				So(decided.Status, ShouldEqual, model.AwayApproved)
				So(decided.DecidedBy, ShouldNotBeNil)
				So(*decided.DecidedBy, ShouldEqual, admin.ID)
			})

			Convey("And a second decision is attempted", func() {
				again, err := s.DecideAway(ctx, p.ID, model.AwayRejected, admin.ID, time.Now())

				Convey("Then it conflicts and the first decision stands", func() {
					So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
					So(again.Status, ShouldEqual, model.AwayApproved)
				})
			})
		})

		Convey("When deciding an unknown period", func() {
			_, err := s.DecideAway(ctx, uuid.New(), model.AwayApproved, admin.ID, time.Now())
			So(errors.Is(err, repository.ErrAwayNotFound), ShouldBeTrue)
		})

		Convey("When listing", func() {
			mine, err := s.AwayByUser(ctx, u.ID)
			So(err, ShouldBeNil)
			So(len(mine), ShouldEqual, 1)

			all, err := s.AwayAll(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 1)
			So(all[0].OwnerName, ShouldEqual, "owner")
			So(all[0].OwnerEmail, ShouldEqual, "owner@example.com")
		})

		Convey("When querying overlaps", func() {
			in, err := s.AwayOverlapping(ctx, u.ID,
				time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(len(in), ShouldEqual, 1)

			out, err := s.AwayOverlapping(ctx, u.ID,
				time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 0)
		})
	})
}

func TestMessages(t *testing.T) {
	Convey("Given a few chat messages", t, func() {
		s := openStore(t)
		ctx := context.Background()
		u := mustUser(t, s, "1", "chatty")
		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 4; i++ {
			_, err := s.CreateMessage(ctx, model.Message{
				UserID:    u.ID,
				Content:   fmt.Sprintf("m%d", i),
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			So(err, ShouldBeNil)
		}

		Convey("When fetching the latest page", func() {
			page, err := s.Messages(ctx, nil, 3)
			So(err, ShouldBeNil)

			Convey("Then the newest messages come back in ascending order", func() {
				So(len(page), ShouldEqual, 3)
				So(page[0].Content, ShouldEqual, "m1")
				So(page[2].Content, ShouldEqual, "m3")
				So(page[0].User.Name, ShouldEqual, "chatty")
			})
		})

		Convey("When polling after a timestamp", func() {
			after := base.Add(time.Minute)
			page, err := s.Messages(ctx, &after, 10)
			So(err, ShouldBeNil)

			Convey("Then only newer messages are returned", func() {
				So(len(page), ShouldEqual, 2)
				So(page[0].Content, ShouldEqual, "m2")
			})
		})
	})
}
