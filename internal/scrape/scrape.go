// Package scrape obtains the raw course-card markup from the university
// portal with a Chromium instance driven by chromedp. It logs in with the
// student's portal credentials, opens the enrollment list page and returns the
// outerHTML of every course card for the fragment parser to chew on.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/chromedp/chromedp"
	"github.com/joho/godotenv"

	appLog "unisync/internal/log"
)

const (
	loginURL    = "https://prodweb.snu.in/psp/CSPROD/EMPLOYEE/HRMS/?cmd=login"
	scheduleURL = "https://prodweb.snu.in/psc/CSPROD/EMPLOYEE/HRMS/c/SA_LEARNER_SERVICES.SSR_SSENRL_LIST.GBL"

	// courseCardSelector matches one visually-distinct course card.
	courseCardSelector = `div[id*="DERIVED_REGFRM1_DESCR20"]`

	DefaultTimeout = 90 * time.Second
)

// collectCardsJS gathers the raw markup of every course card on the page.
const collectCardsJS = `Array.from(document.querySelectorAll('div[id*="DERIVED_REGFRM1_DESCR20"]')).map((d) => d.outerHTML)`

// Credentials holds the portal login pair, read from the environment.
type Credentials struct {
	NetID    string `env:"ERP_NETID,required"`
	Password string `env:"ERP_PASSWORD,required"`
}

// CredentialsFromEnv loads credentials from the environment, reading a local
// .env file first if one exists.
func CredentialsFromEnv() (Credentials, error) {
	_ = godotenv.Load()

	var c Credentials
	if err := env.Parse(&c); err != nil {
		return Credentials{}, fmt.Errorf("portal credentials: %w", err)
	}
	return c, nil
}

// Options defines parameters for one scrape run.
type Options struct {
	// Headless controls whether Chromium runs without a visible window.
	Headless bool

	// Timeout bounds the entire login + navigation + extraction sequence.
	// If zero, DefaultTimeout is used.
	Timeout time.Duration
}

// FetchCourseFragments logs into the portal, opens the weekly enrollment page
// and returns one raw markup fragment per course card.
func FetchCourseFragments(parentCtx context.Context, creds Credentials, opts Options) ([]string, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, opts.Timeout)
	defer cancelTimeout()

	appLog.Info("portal scrape start", "headless", opts.Headless)

	var fragments []string
	tasks := chromedp.Tasks{
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(`#userid`, chromedp.ByQuery),
		chromedp.SendKeys(`#userid`, creds.NetID, chromedp.ByQuery),
		chromedp.SendKeys(`#pwd`, creds.Password, chromedp.ByQuery),
		chromedp.Click(`.psloginbutton`, chromedp.ByQuery),
		// The portal redirects through an interstitial after login; waiting on
		// the schedule page's own markup is the only reliable signal.
		chromedp.Sleep(2 * time.Second),
		chromedp.Navigate(scheduleURL),
		chromedp.WaitReady(courseCardSelector, chromedp.ByQuery),
		chromedp.Evaluate(collectCardsJS, &fragments),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("scrape: chromedp run failed: %w", err)
	}
	if len(fragments) == 0 {
		return nil, errors.New("scrape: no course cards found on schedule page")
	}

	appLog.Info("portal scrape completed", "course_cards", len(fragments))
	return fragments, nil
}
