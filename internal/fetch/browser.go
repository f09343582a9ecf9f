package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/stealth"
)

// requestIdle is how long the network must stay quiet before a page is
// considered loaded.
const requestIdle = 500 * time.Millisecond

// launchFlags are the Chromium switches that hide the most common
// automation signals.
var launchFlags = map[flags.Flag]string{
	"disable-blink-features":    "AutomationControlled",
	"disable-dev-shm-usage":     "",
	"disable-infobars":          "",
	"window-size":               "1920,1080",
	"ignore-certificate-errors": "",
}

// statusScript reads the HTTP status of the main document.
const statusScript = `() => {
  const nav = performance.getEntriesByType('navigation')[0];
  return nav && nav.responseStatus ? nav.responseStatus : 0;
}`

// renderScript captures what only the live DOM knows: the visible text
// without navigation chrome, and decoded image sizes.
const renderScript = `() => {
  const body = document.body;
  let text = '';
  if (body) {
    const clone = body.cloneNode(true);
    ['script', 'style', 'noscript', 'nav', 'footer', 'header', 'aside'].forEach(tag => {
      clone.querySelectorAll(tag).forEach(el => el.remove());
    });
    text = clone.innerText || clone.textContent || '';
  }
  const images = Array.from(document.images).map(img => ({
    src: img.currentSrc || img.src || '',
    alt: img.alt || '',
    width: img.naturalWidth || 0,
    height: img.naturalHeight || 0
  }));
  return { text, images };
}`

// BrowserStrategy fetches pages through a headless Chromium session.
//
// Design decision: One incognito context and one tab serve the whole run.
// Cookies and storage persist between pages like a single visitor's, and
// the stealth script is registered once on that tab so it runs before every
// document the tab loads.
type BrowserStrategy struct {
	profile     stealth.Profile
	headers     map[string]string
	cookie      string
	loadTimeout time.Duration
	readDelay   config.DelayRange
	scrollPause config.DelayRange
	delayer     Delayer
	binPath     string
	headless    bool
	logger      *slog.Logger

	mu        sync.Mutex
	cookieSet bool
	launcher  *launcher.Launcher
	browser   *rod.Browser
	context   *rod.Browser
	page      *rod.Page
	rng       *rand.Rand
}

// BrowserOption configures a BrowserStrategy.
type BrowserOption func(*BrowserStrategy)

// WithBrowserProfile sets the stealth profile.
func WithBrowserProfile(p stealth.Profile) BrowserOption {
	return func(s *BrowserStrategy) {
		s.profile = p
	}
}

// WithBrowserHeaders adds custom headers to every request the tab makes.
func WithBrowserHeaders(headers map[string]string) BrowserOption {
	return func(s *BrowserStrategy) {
		s.headers = headers
	}
}

// WithBrowserCookie sets cookies ("a=1; b=2") for the seed host.
func WithBrowserCookie(cookie string) BrowserOption {
	return func(s *BrowserStrategy) {
		s.cookie = cookie
	}
}

// WithPageLoadTimeout bounds each navigation including the idle wait.
func WithPageLoadTimeout(d time.Duration) BrowserOption {
	return func(s *BrowserStrategy) {
		s.loadTimeout = d
	}
}

// WithReadDelay sets the simulated reading pause before each navigation.
func WithReadDelay(r config.DelayRange) BrowserOption {
	return func(s *BrowserStrategy) {
		s.readDelay = r
	}
}

// WithScrollPause sets the pause after the simulated scroll.
func WithScrollPause(r config.DelayRange) BrowserOption {
	return func(s *BrowserStrategy) {
		s.scrollPause = r
	}
}

// WithDelayer sets how pauses are taken.
func WithDelayer(d Delayer) BrowserOption {
	return func(s *BrowserStrategy) {
		s.delayer = d
	}
}

// WithBrowserBin uses a specific Chromium binary instead of looking one up.
func WithBrowserBin(path string) BrowserOption {
	return func(s *BrowserStrategy) {
		s.binPath = path
	}
}

// WithHeadless toggles headless mode. Headless is the default.
func WithHeadless(headless bool) BrowserOption {
	return func(s *BrowserStrategy) {
		s.headless = headless
	}
}

// WithBrowserLogger sets the logger.
func WithBrowserLogger(logger *slog.Logger) BrowserOption {
	return func(s *BrowserStrategy) {
		s.logger = logger
	}
}

// NewBrowserStrategy creates a browser strategy. Nothing is launched until Open.
func NewBrowserStrategy(opts ...BrowserOption) *BrowserStrategy {
	s := &BrowserStrategy{
		profile:     stealth.NewProfile(stealth.UserAgents[0]),
		loadTimeout: config.DefaultPageLoadTimeout,
		readDelay:   config.DefaultReadDelay,
		scrollPause: config.DefaultScrollPause,
		delayer:     NewRandomDelayer(nil),
		headless:    true,
		logger:      slog.Default(),
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), //nolint:gosec // scroll jitter only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Strategy.
func (s *BrowserStrategy) Name() string {
	return string(config.StrategyBrowser)
}

// newLauncher builds the Chromium launcher with the stealth flags.
func (s *BrowserStrategy) newLauncher() *launcher.Launcher {
	l := launcher.New().Headless(s.headless).NoSandbox(true).Leakless(false)
	for flag, value := range launchFlags {
		if value == "" {
			l = l.Set(flag)
		} else {
			l = l.Set(flag, value)
		}
	}
	if s.binPath != "" {
		l = l.Bin(s.binPath)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	return l
}

// Open implements Strategy. It launches Chromium, creates an incognito
// context with a single tab, and applies the stealth profile to it.
// On failure every partially created resource is released.
func (s *BrowserStrategy) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return nil
	}

	l := s.newLauncher()
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return &FetchError{Kind: KindSetup, Err: fmt.Errorf("%w: %w", ErrNoBrowser, err)}
	}
	s.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		s.releaseLocked()
		return &FetchError{Kind: KindSetup, Err: fmt.Errorf("failed to connect to browser: %w", err)}
	}
	s.browser = browser

	incognito, err := browser.Incognito()
	if err != nil {
		s.releaseLocked()
		return &FetchError{Kind: KindSetup, Err: fmt.Errorf("failed to create browser context: %w", err)}
	}
	s.context = incognito

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.releaseLocked()
		return &FetchError{Kind: KindSetup, Err: fmt.Errorf("failed to open tab: %w", err)}
	}
	s.page = page

	if err := s.applyProfile(incognito, page); err != nil {
		s.releaseLocked()
		return &FetchError{Kind: KindSetup, Err: err}
	}

	s.logger.Info("browser initialized with stealth profile",
		"user_agent", s.profile.UserAgent,
		"platform", s.profile.Platform,
		"timezone", s.profile.Timezone,
	)
	return nil
}

// applyProfile installs the fingerprint on the tab. It runs once per session.
func (s *BrowserStrategy) applyProfile(ctxBrowser *rod.Browser, page *rod.Page) error {
	p := s.profile

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      p.UserAgent,
		AcceptLanguage: p.AcceptLanguage(),
		Platform:       p.Platform,
	}); err != nil {
		return fmt.Errorf("failed to set user agent: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             p.Viewport.Width,
		Height:            p.Viewport.Height,
		DeviceScaleFactor: p.Viewport.ScaleFactor,
		Mobile:            false,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: p.Timezone}).Call(page); err != nil {
		return fmt.Errorf("failed to set timezone: %w", err)
	}

	if err := (proto.EmulationSetLocaleOverride{Locale: p.Locale}).Call(page); err != nil {
		return fmt.Errorf("failed to set locale: %w", err)
	}

	lat, lon, acc := p.Geolocation.Latitude, p.Geolocation.Longitude, p.Geolocation.Accuracy
	if err := (proto.EmulationSetGeolocationOverride{Latitude: &lat, Longitude: &lon, Accuracy: &acc}).Call(page); err != nil {
		return fmt.Errorf("failed to set geolocation: %w", err)
	}

	if err := (proto.BrowserGrantPermissions{
		Permissions:      []proto.BrowserPermissionType{proto.BrowserPermissionTypeGeolocation},
		BrowserContextID: ctxBrowser.BrowserContextID,
	}).Call(ctxBrowser); err != nil {
		return fmt.Errorf("failed to grant geolocation: %w", err)
	}

	if err := (proto.SecuritySetIgnoreCertificateErrors{Ignore: true}).Call(page); err != nil {
		return fmt.Errorf("failed to relax certificate checks: %w", err)
	}

	if len(s.headers) > 0 {
		pairs := make([]string, 0, len(s.headers)*2)
		for k, v := range s.headers {
			pairs = append(pairs, k, v)
		}
		if _, err := page.SetExtraHeaders(pairs); err != nil {
			return fmt.Errorf("failed to set extra headers: %w", err)
		}
	}

	script, err := p.Script()
	if err != nil {
		return err
	}
	if _, err := page.EvalOnNewDocument(script); err != nil {
		return fmt.Errorf("failed to install stealth script: %w", err)
	}
	return nil
}

// Fetch implements Strategy. It pauses like a reader, navigates, waits for
// network quiescence, scrolls a little, pauses again and captures the DOM.
func (s *BrowserStrategy) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	s.mu.Lock()
	page := s.page
	seedCookie := !s.cookieSet && s.cookie != ""
	s.cookieSet = true
	scroll := 300 + s.rng.IntN(500)
	s.mu.Unlock()

	if page == nil {
		return nil, classify(rawURL, ErrSessionNotOpen)
	}

	// The configured cookie is stored once; the browser keeps it afterwards.
	if seedCookie {
		if err := page.SetCookies(CookieParams(s.cookie, rawURL)); err != nil {
			s.logger.Warn("failed to set configured cookie", "url", rawURL, "error", err)
		}
	}

	if err := s.delayer.Delay(ctx, s.readDelay); err != nil {
		return nil, classify(rawURL, err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()
	p := page.Context(loadCtx)

	wait := p.WaitRequestIdle(requestIdle, nil, nil, nil)
	if err := p.Navigate(rawURL); err != nil {
		return nil, navigationError(rawURL, err)
	}
	wait()
	if err := loadCtx.Err(); err != nil {
		return nil, classify(rawURL, err)
	}

	status := 0
	if res, err := p.Eval(statusScript); err == nil {
		status = res.Value.Int()
	}
	if err := statusError(rawURL, status); err != nil {
		return nil, err
	}

	if err := p.Mouse.Scroll(0, float64(scroll), 4); err != nil {
		s.logger.Debug("scroll failed", "url", rawURL, "error", err)
	}
	if err := s.delayer.Delay(ctx, s.scrollPause); err != nil {
		return nil, classify(rawURL, err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, classify(rawURL, err)
	}

	var rendered Rendering
	if res, err := p.Eval(renderScript); err == nil {
		if err := res.Value.Unmarshal(&rendered); err != nil {
			s.logger.Debug("failed to decode rendered snapshot", "url", rawURL, "error", err)
		}
	} else {
		s.logger.Debug("failed to capture rendered snapshot", "url", rawURL, "error", err)
	}

	finalURL := rawURL
	if res, err := p.Eval(`() => location.href`); err == nil {
		if href := res.Value.Str(); href != "" {
			finalURL = href
		}
	}

	return &Page{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: status,
		HTML:       html,
		Rendered:   &rendered,
	}, nil
}

// navigationError classifies a failed navigation.
func navigationError(rawURL string, err error) error {
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		if strings.Contains(navErr.Reason, "TIMED_OUT") {
			return &FetchError{URL: rawURL, Kind: KindTimeout, Err: err}
		}
		return &FetchError{URL: rawURL, Kind: KindNetwork, Err: err}
	}
	return classify(rawURL, err)
}

// Close implements Strategy. It is safe to call after a failed Open.
func (s *BrowserStrategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked()
}

// releaseLocked closes the tab, the context and the browser, and kills the
// launched process. s.mu must be held.
func (s *BrowserStrategy) releaseLocked() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tab: %w", err))
		}
		s.page = nil
	}
	s.cookieSet = false
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser context: %w", err))
		}
		s.context = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return errors.Join(errs...)
}

// CookieParams converts a raw "a=1; b=2" cookie string into CDP cookie
// parameters scoped to the URL.
func CookieParams(raw, rawURL string) []*proto.NetworkCookieParam {
	var params []*proto.NetworkCookieParam
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
			URL:   rawURL,
		})
	}
	return params
}
