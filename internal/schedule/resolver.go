package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/models"
)

// TemplateStore is the slice of the template repository the resolver needs.
// A nil result (no error) means the template does not exist.
type TemplateStore interface {
	GetByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error)
}

const (
	ModeSmart    = "smart"
	ModeInterval = "interval"

	// How far forward a smart schedule is searched before the resolver gives
	// up and falls back to the flat interval: today plus seven more days.
	lookAheadDays = 8
)

var dayNumbers = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// Resolver computes the next absolute run time for a job. It never fails:
// any problem with the template or the store degrades to the flat-interval
// fallback, logged as a warning.
type Resolver struct {
	store TemplateStore

	// Now and Intn are swappables for tests; zero values mean the real clock
	// and math/rand.
	Now  func() time.Time
	Intn func(n int) int
}

func NewResolver(store TemplateStore) *Resolver {
	return &Resolver{store: store, Now: time.Now, Intn: rand.Intn}
}

// NextRun implements jobpool.NextRunResolver.
func (r *Resolver) NextRun(job *jobpool.Job) (int64, string) {
	now := r.Now()

	if job.UseSmartSchedule && job.TemplateID != nil {
		if ts, ok := r.fromTemplate(now, *job.TemplateID, job.PageName); ok {
			return ts, ModeSmart
		}
	}

	interval := job.IntervalSeconds
	if job.Kind == models.JobKindVideo && job.Video != nil && job.Video.JitterEnabled {
		interval = JitterInterval(interval, job.Video.JitterPercent, r.Intn)
	}
	if interval < 1 {
		interval = 1
	}
	return now.Unix() + int64(interval), ModeInterval
}

func (r *Resolver) fromTemplate(now time.Time, templateID int64, pageName string) (int64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tpl, err := r.store.GetByID(ctx, templateID)
	if err != nil {
		slog.Warn("smart schedule: template lookup failed, using interval",
			"template_id", templateID, "page", pageName, "error", err.Error())
		return 0, false
	}
	if tpl == nil {
		slog.Warn("smart schedule: template not found, using interval",
			"template_id", templateID, "page", pageName)
		return 0, false
	}

	next, ok := NextFromTemplate(tpl, now)
	if !ok {
		slog.Warn("smart schedule: no qualifying slot within look-ahead, using interval",
			"template_id", templateID, "page", pageName)
		return 0, false
	}

	if tpl.RandomOffsetMinutes > 0 {
		window := tpl.RandomOffsetMinutes * 60
		next = next.Add(time.Duration(r.Intn(2*window+1)-window) * time.Second)
	}
	// The offset may pull the slot into the past; keep the contract that the
	// result is a future timestamp.
	if !next.After(now) {
		next = now.Add(time.Second)
	}
	return next.Unix(), true
}

// NextFromTemplate computes the next qualifying (weekday, time-of-day) pair
// strictly after ref. When several times qualify on the same day the earliest
// wins; when none qualify today the first time on the next active weekday
// wins. An empty template or no slot within the look-ahead reports ok=false.
func NextFromTemplate(tpl *models.ScheduleTemplate, ref time.Time) (time.Time, bool) {
	days := tpl.Days
	if len(days) == 0 {
		// Older templates stored no day list; treat as every day.
		days = models.AllWeekdays
	}

	allowed := make(map[time.Weekday]bool)
	for _, d := range days {
		if wd, ok := dayNumbers[strings.ToLower(strings.TrimSpace(d))]; ok {
			allowed[wd] = true
		}
	}
	times := normalizeTimes(tpl.Times)
	if len(allowed) == 0 || len(times) == 0 {
		return time.Time{}, false
	}

	current := ref.Format("15:04")
	if allowed[ref.Weekday()] {
		for _, t := range times {
			if t > current {
				return atClock(ref, t), true
			}
		}
	}
	for ahead := 1; ahead < lookAheadDays; ahead++ {
		day := ref.AddDate(0, 0, ahead)
		if allowed[day.Weekday()] {
			return atClock(day, times[0]), true
		}
	}
	return time.Time{}, false
}

// JitterInterval spreads a flat interval by ±percent to avoid machine-regular
// posting. The floor of ten seconds keeps a heavily jittered short interval
// from collapsing to zero.
func JitterInterval(base, percent int, intn func(int) int) int {
	if percent <= 0 || base <= 0 {
		return base
	}
	if intn == nil {
		intn = rand.Intn
	}
	variation := base * percent / 100
	if variation <= 0 {
		return base
	}
	jittered := base + intn(2*variation+1) - variation
	if jittered < 10 {
		return 10
	}
	return jittered
}

func normalizeTimes(in []string) []string {
	var out []string
	for _, raw := range in {
		parts := strings.SplitN(strings.TrimSpace(raw), ":", 3)
		if len(parts) < 2 {
			continue
		}
		h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
			continue
		}
		out = append(out, fmt.Sprintf("%02d:%02d", h, m))
	}
	sort.Strings(out)
	return out
}

func atClock(day time.Time, hhmm string) time.Time {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}
