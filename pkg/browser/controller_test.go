package browser

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/einkcast/einkcast/pkg/config"
	"github.com/einkcast/einkcast/pkg/logging"
)

const testBaseURL = "https://dashboard.test"

type fakePage struct {
	mu sync.Mutex

	scripts ScriptSet

	gotoURLs      []string
	gotoStatus    int
	gotoErr       error
	notReady      bool
	evaluated     []string
	lastLoaded    string
	screenshotErr error
	closed        bool
	closeErr      error
	viewportW     int
	viewportH     int
}

func (p *fakePage) Goto(url string, _ float64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotoURLs = append(p.gotoURLs, url)
	if p.gotoErr != nil {
		return 0, p.gotoErr
	}
	status := p.gotoStatus
	if status == 0 {
		status = 200
	}
	if status < 400 {
		p.lastLoaded = url
	}
	return status, nil
}

func (p *fakePage) Evaluate(expression string) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evaluated = append(p.evaluated, expression)
	if expression == p.scripts.Ready {
		return !p.notReady, nil
	}
	if expression == p.scripts.DismissUpdateToast {
		return false, nil
	}
	return nil, nil
}

func (p *fakePage) SetViewportSize(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewportW, p.viewportH = width, height
	return nil
}

func (p *fakePage) Screenshot(_ Clip) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.screenshotErr != nil {
		return nil, p.screenshotErr
	}
	return []byte("frame:" + p.lastLoaded), nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeErr
}

func (p *fakePage) gotoCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.gotoURLs)
}

func (p *fakePage) evalCount(expression string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.evaluated {
		if e == expression {
			n++
		}
	}
	return n
}

type fakeLauncher struct {
	page      *fakePage
	launchErr error
	launches  int
	stopped   bool
}

func (l *fakeLauncher) Launch(_ config.Viewport, _ string) (Page, error) {
	l.launches++
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return l.page, nil
}

func (l *fakeLauncher) Stop() error {
	l.stopped = true
	return nil
}

func newTestController(t *testing.T) (*Controller, *fakePage, *fakeLauncher) {
	t.Helper()
	scripts := DefaultScripts(testBaseURL, "test-token")
	page := &fakePage{scripts: scripts}
	launcher := &fakeLauncher{page: page}
	c := NewController(launcher, scripts, testBaseURL, logging.New("production"))
	c.sleep = func(time.Duration) {}
	return c, page, launcher
}

func params(path string) CaptureParams {
	return CaptureParams{
		Path:     path,
		Viewport: config.Viewport{Width: 800, Height: 600},
		Zoom:     1,
	}
}

func TestController_FirstLoad(t *testing.T) {
	c, page, launcher := newTestController(t)

	frame, err := c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)

	assert.Equal(t, "frame:"+testBaseURL+"/overview/0", string(frame))
	assert.Equal(t, 1, launcher.launches)
	assert.Equal(t, []string{testBaseURL + "/overview/0"}, page.gotoURLs)
	assert.Equal(t, "/overview/0", c.state.LastPath)
	assert.Equal(t, 800, page.viewportW)

	// With the init script covering the first load, no in-page auth
	// injection should have happened.
	assert.Zero(t, page.evalCount(c.scripts.AuthSeed))
}

func TestController_SamePathSkipsReload(t *testing.T) {
	c, page, _ := newTestController(t)

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)
	_, err = c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)

	assert.Equal(t, 1, page.gotoCount(), "consecutive captures of the same path must not reload")
}

func TestController_PathTransitionReloadsAndReinjectsAuth(t *testing.T) {
	c, page, _ := newTestController(t)

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)
	frame, err := c.NavigateAndCapture(params("/energy"))
	require.NoError(t, err)

	assert.Equal(t, 2, page.gotoCount())
	assert.Equal(t, "frame:"+testBaseURL+"/energy", string(frame))
	assert.Equal(t, 1, page.evalCount(c.scripts.AuthSeed), "transition must re-inject auth before reloading")
}

func TestController_NavigationErrorResetsCache(t *testing.T) {
	c, page, _ := newTestController(t)
	page.gotoStatus = 503

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.Error(t, err)

	var openErr *CannotOpenPageError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, 503, openErr.Status)
	assert.Equal(t, testBaseURL+"/overview/0", openErr.URL)
	assert.Empty(t, c.state.LastPath)

	// The next attempt must be forced through the full-load path.
	page.gotoStatus = 200
	_, err = c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)
	assert.Equal(t, 2, page.gotoCount())
}

func TestController_GotoFailureResetsCache(t *testing.T) {
	c, page, _ := newTestController(t)
	page.gotoErr = errors.New("net::ERR_CONNECTION_REFUSED")

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.Error(t, err)
	assert.Empty(t, c.state.LastPath)
}

func TestController_CaptureErrorResetsCache(t *testing.T) {
	c, page, _ := newTestController(t)

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)

	page.screenshotErr = errors.New("render crashed")
	_, err = c.NavigateAndCapture(params("/overview/0"))
	require.Error(t, err)

	var capErr *CaptureError
	assert.ErrorAs(t, err, &capErr)
	assert.Empty(t, c.state.LastPath)

	// Recovery goes through a fresh full load.
	page.screenshotErr = nil
	_, err = c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)
	assert.Equal(t, 2, page.gotoCount())
}

func TestController_SettingsAppliedOnlyOnChange(t *testing.T) {
	c, page, _ := newTestController(t)

	p := params("/overview/0")
	p.Lang = "de"
	p.Theme = "night"
	p.Dark = true

	_, err := c.NavigateAndCapture(p)
	require.NoError(t, err)
	assert.Equal(t, 1, page.evalCount(c.scripts.SetLang("de")))
	assert.Equal(t, 1, page.evalCount(c.scripts.SetTheme("night", true)))

	_, err = c.NavigateAndCapture(p)
	require.NoError(t, err)
	assert.Equal(t, 1, page.evalCount(c.scripts.SetLang("de")), "unchanged locale must not be re-applied")
	assert.Equal(t, 1, page.evalCount(c.scripts.SetTheme("night", true)), "unchanged theme must not be re-applied")
}

func TestController_ZoomReappliedAfterReload(t *testing.T) {
	c, page, _ := newTestController(t)

	p := params("/overview/0")
	p.Zoom = 2

	_, err := c.NavigateAndCapture(p)
	require.NoError(t, err)
	assert.Equal(t, 1, page.evalCount(c.scripts.SetZoom(2)))

	// Same path, same zoom: cached, no re-apply.
	_, err = c.NavigateAndCapture(p)
	require.NoError(t, err)
	assert.Equal(t, 1, page.evalCount(c.scripts.SetZoom(2)))

	// A full reload resets page zoom, so it must be applied again.
	p2 := p
	p2.Path = "/energy"
	_, err = c.NavigateAndCapture(p2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.evalCount(c.scripts.SetZoom(2)))
}

func TestController_AtomicNavigateAndCapture(t *testing.T) {
	c, _, _ := newTestController(t)

	paths := []string{"/overview/0", "/energy"}
	var wg sync.WaitGroup
	errs := make(chan error, 40)

	for i := 0; i < 2; i++ {
		path := paths[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				frame, err := c.NavigateAndCapture(params(path))
				if err != nil {
					errs <- err
					return
				}
				if want := "frame:" + testBaseURL + path; string(frame) != want {
					errs <- fmt.Errorf("captured %q, want %q", frame, want)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("interleaved capture: %v", err)
	}
}

func TestController_LaunchFailure(t *testing.T) {
	c, _, launcher := newTestController(t)
	launcher.launchErr = &ResourceError{Err: errors.New("chromium missing")}

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.Error(t, err)

	var resErr *ResourceError
	assert.ErrorAs(t, err, &resErr)
}

func TestController_ShutdownTolerant(t *testing.T) {
	c, page, launcher := newTestController(t)

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)

	page.closeErr = errors.New("already closed")
	c.Shutdown()

	assert.True(t, page.closed)
	assert.True(t, launcher.stopped, "launcher must be stopped even when page close fails")
}

func TestController_ReadinessPolledOnFullLoad(t *testing.T) {
	c, page, _ := newTestController(t)

	_, err := c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, page.evalCount(c.scripts.Ready), 1)
	assert.GreaterOrEqual(t, page.evalCount(c.scripts.DismissUpdateToast), 1)
	assert.True(t, strings.Contains(c.scripts.Ready, "_loading"))
}

func TestController_ReadinessTimeoutNotFatal(t *testing.T) {
	c, page, _ := newTestController(t)
	page.notReady = true

	// Drive the poll deadline off a fake clock that the injected sleeper
	// advances, so giving up takes no real time.
	clock := time.Now()
	c.now = func() time.Time { return clock }
	c.sleep = func(d time.Duration) { clock = clock.Add(d) }

	frame, err := c.NavigateAndCapture(params("/overview/0"))
	require.NoError(t, err, "a page that never reports ready must still be captured")

	assert.Equal(t, "frame:"+testBaseURL+"/overview/0", string(frame))
	assert.Equal(t, "/overview/0", c.state.LastPath)
	assert.GreaterOrEqual(t, page.evalCount(c.scripts.Ready), 2, "readiness must be polled until the deadline passes")
}

func TestSettleWait(t *testing.T) {
	ms := func(n int) *int { return &n }
	tests := []struct {
		name    string
		extraMs *int
		kind    navKind
		want    time.Duration
	}{
		{"full load default", nil, navFullLoad, defaultFullLoadWait},
		{"settings-only default", nil, navSettingsOnly, defaultSettingsWait},
		{"no-op default", nil, navNoop, 0},
		{"override beats full-load default", ms(250), navFullLoad, 250 * time.Millisecond},
		{"zero override disables the full-load wait", ms(0), navFullLoad, 0},
		{"override applies to no-op too", ms(80), navNoop, 80 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, settleWait(tt.extraMs, tt.kind))
		})
	}
}
