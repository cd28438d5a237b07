package integration

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/fitness-sync-server/internal/status"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
	"github.com/stacklok/fitness-sync-server/internal/sync/writer"
	"github.com/stacklok/fitness-sync-server/test-integration/fitness-sync/helpers"
)

const userID = "athlete-1"

var _ = Describe("Calendar sync", func() {
	var (
		tempDir  string
		upstream *helpers.FakeUpstream
		server   *helpers.ServerTestHelper
		days     []time.Time
	)

	waitForSuccess := func(after *time.Time) {
		Eventually(func(g Gomega) {
			st, code, err := server.GetSyncStatus(userID)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(code).To(Equal(http.StatusOK))
			g.Expect(st.Sync.Phase).To(Equal(status.SyncPhaseSuccess))
			g.Expect(st.LastSyncTS).NotTo(BeNil())
			if after != nil {
				g.Expect(st.LastSyncTS.After(*after)).To(BeTrue())
			}
		}, 15*time.Second, 100*time.Millisecond).Should(Succeed())
	}

	BeforeEach(func() {
		tempDir = createTempDir("fitness-sync-integration-")

		today := time.Now().UTC().Truncate(24 * time.Hour)
		days = []time.Time{today.AddDate(0, 0, -3), today.AddDate(0, 0, -2), today}
		upstream = helpers.NewFakeUpstream(days, []helpers.Activity{
			{LogID: 1, ActivityName: "Morning Run", StartTime: days[1].Add(7 * time.Hour).Format("2006-01-02T15:04:05.000"), Steps: 5400},
			{LogID: 2, ActivityName: "", StartTime: days[1].Add(18 * time.Hour).Format(time.RFC3339), Steps: 800},
		})

		configPath := helpers.WriteConfigYAML(tempDir, upstream)
		server = helpers.NewServerTestHelper(ctx, configPath)
	})

	AfterEach(func() {
		if server != nil {
			Expect(server.StopServer()).To(Succeed())
		}
		upstream.Close()
		cleanupTempDir(tempDir)
	})

	Context("with a registered user holding valid tokens", func() {
		BeforeEach(func() {
			Expect(helpers.SeedUser(ctx, tempDir, &state.User{
				ID:           userID,
				Name:         "Athlete",
				AccessToken:  upstream.AccessToken(),
				RefreshToken: "refresh-1",
				TokenExpiry:  time.Now().Add(time.Hour),
			})).To(Succeed())

			Expect(server.StartServer()).To(Succeed())
			server.WaitForServerReady(10 * time.Second)
		})

		It("syncs a never-synced user at startup and writes the calendar", func() {
			waitForSuccess(nil)

			entries, err := helpers.ReadCalendar(tempDir, userID)
			Expect(err).NotTo(HaveOccurred())

			stats := helpers.EntriesBySlug(entries, writer.StatisticsFieldSlug)
			Expect(stats).To(HaveLen(len(days)))
			for i, e := range stats {
				Expect(e.Date).To(BeTemporally("==", days[i].Add(12*time.Hour)))
				Expect(e.Data).To(HaveKey("steps"))
				Expect(e.Data).To(HaveKey("HR_zone_min_30_max_100"))
			}

			activities := helpers.EntriesBySlug(entries, writer.ActivitiesFieldSlug)
			Expect(activities).To(HaveLen(2))
			Expect(activities[0].Title).To(Equal("Morning Run"))
			Expect(activities[0].Date).To(BeTemporally("==", days[1].Add(7*time.Hour)))
			Expect(activities[0].Data).To(HaveKeyWithValue("source.name", "Watch"))
			Expect(activities[1].Title).To(Equal(writer.DefaultActivityTitle))

			snapshots, err := os.ReadDir(filepath.Join(tempDir, "snapshots"))
			Expect(err).NotTo(HaveOccurred())
			Expect(snapshots).To(HaveLen(1))
		})

		It("runs a manual sync from the cursor", func() {
			waitForSuccess(nil)
			first, _, err := server.GetSyncStatus(userID)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.TriggerSync(userID)
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			waitForSuccess(first.LastSyncTS)

			cursorDay := first.LastSyncTS.UTC().Format("2006-01-02")
			Expect(activityAfterDates(upstream.Requests())).To(ContainElement(cursorDay))

			// Earlier days are kept and the cursor day is cleared and rewritten
			entries, err := helpers.ReadCalendar(tempDir, userID)
			Expect(err).NotTo(HaveOccurred())
			stats := helpers.EntriesBySlug(entries, writer.StatisticsFieldSlug)
			Expect(stats).To(HaveLen(len(days)))
			for i, e := range stats {
				Expect(e.Date).To(BeTemporally("==", days[i].Add(12*time.Hour)))
			}
		})

		It("keeps the cursor when every statistics resource fails", func() {
			waitForSuccess(nil)
			first, _, err := server.GetSyncStatus(userID)
			Expect(err).NotTo(HaveOccurred())

			for _, resource := range []string{
				"activities/heart", "activities/steps", "activities/calories", "activities/distance",
				"activities/floors", "activities/elevation", "activities/minutesSedentary", "activities/minutesVeryActive",
			} {
				upstream.FailResource(resource)
			}

			resp, err := server.TriggerSync(userID)
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()

			Eventually(func(g Gomega) {
				st, _, err := server.GetSyncStatus(userID)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(st.Sync.Phase).To(Equal(status.SyncPhaseFailed))
				g.Expect(st.LastSyncTS).NotTo(BeNil())
				g.Expect(*st.LastSyncTS).To(BeTemporally("==", *first.LastSyncTS))
			}, 15*time.Second, 100*time.Millisecond).Should(Succeed())
		})

		It("returns 404 for an unknown user", func() {
			_, code, err := server.GetSyncStatus("nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(http.StatusNotFound))
		})
	})

	Context("with an expired access token", func() {
		BeforeEach(func() {
			Expect(helpers.SeedUser(ctx, tempDir, &state.User{
				ID:           userID,
				AccessToken:  "stale",
				RefreshToken: "refresh-1",
				TokenExpiry:  time.Now().Add(-time.Hour),
			})).To(Succeed())

			Expect(server.StartServer()).To(Succeed())
			server.WaitForServerReady(10 * time.Second)
		})

		It("refreshes and persists the new tokens", func() {
			waitForSuccess(nil)

			Expect(upstream.Refreshes()).To(Equal(1))
			user, err := helpers.LoadUser(ctx, tempDir, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.AccessToken).To(Equal(upstream.AccessToken()))
			Expect(user.RefreshToken).To(Equal("refresh-2"))
		})
	})

	Context("with a user without credentials", func() {
		BeforeEach(func() {
			Expect(helpers.SeedUser(ctx, tempDir, &state.User{ID: userID})).To(Succeed())
			Expect(server.StartServer()).To(Succeed())
			server.WaitForServerReady(10 * time.Second)
		})

		It("never calls the upstream", func() {
			resp, err := server.TriggerSync(userID)
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			Consistently(func() []string {
				return upstream.Requests()
			}, time.Second, 100*time.Millisecond).Should(BeEmpty())

			st, _, err := server.GetSyncStatus(userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.LastSyncTS).To(BeNil())
		})
	})
})

// activityAfterDates returns the afterDate of every activity log request
func activityAfterDates(requests []string) []string {
	var dates []string
	for _, r := range requests {
		if !strings.Contains(r, "/activities/list.json") {
			continue
		}
		u, err := url.Parse(r)
		if err != nil {
			continue
		}
		dates = append(dates, u.Query().Get("afterDate"))
	}
	return dates
}
