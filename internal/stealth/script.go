package stealth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// overrideTemplate installs the fingerprint overrides. It runs before any
// page script and is guarded so a second evaluation in the same document
// does nothing.
const overrideTemplate = `(() => {
  const marker = Symbol.for('sc.profile');
  if (window[marker]) { return; }
  Object.defineProperty(window, marker, { value: true });

  const define = (obj, prop, value) => {
    try { Object.defineProperty(obj, prop, { get: () => value, configurable: true }); } catch (e) {}
  };

  let state = {{json .NoiseSeed}} >>> 0;
  const noise = () => {
    state = (state + 0x6D2B79F5) >>> 0;
    let t = state;
    t = Math.imul(t ^ (t >>> 15), t | 1);
    t ^= t + Math.imul(t ^ (t >>> 7), t | 61);
    return ((t ^ (t >>> 14)) >>> 0) / 4294967296;
  };

  define(Navigator.prototype, 'webdriver', undefined);
  define(Navigator.prototype, 'userAgent', {{json .UserAgent}});
  define(Navigator.prototype, 'platform', {{json .Platform}});
  define(Navigator.prototype, 'language', {{json .Locale}});
  define(Navigator.prototype, 'languages', Object.freeze({{json .Languages}}));
  define(Navigator.prototype, 'hardwareConcurrency', {{json .HardwareConcurrency}});
  define(Navigator.prototype, 'deviceMemory', {{json .DeviceMemory}});
{{- if .Chromium }}
  define(Navigator.prototype, 'plugins', [
    { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
    { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
    { name: 'Native Client', filename: 'internal-nacl-plugin' }
  ]);

  if (!window.chrome) { window.chrome = {}; }
  if (!window.chrome.runtime) { window.chrome.runtime = {}; }
{{- else }}
  define(Navigator.prototype, 'plugins', []);
  if (window.chrome) { try { delete window.chrome; } catch (e) { window.chrome = undefined; } }
{{- end }}

  if (navigator.permissions && navigator.permissions.query) {
    const originalQuery = navigator.permissions.query.bind(navigator.permissions);
    navigator.permissions.query = (parameters) => (
      parameters && parameters.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : originalQuery(parameters)
    );
  }

  const originalGetContext = HTMLCanvasElement.prototype.getContext;
  HTMLCanvasElement.prototype.getContext = function (type, attributes) {
    const context = originalGetContext.call(this, type, attributes);
    if (type === '2d' && context && !context.__scPatched) {
      const originalFillText = context.fillText;
      context.fillText = function (...args) {
        args[1] += noise() * 0.1 - 0.05;
        args[2] += noise() * 0.1 - 0.05;
        return originalFillText.apply(this, args);
      };
      Object.defineProperty(context, '__scPatched', { value: true });
    }
    return context;
  };

  const webglVendor = {{json .WebGLVendor}};
  const webglRenderer = {{json .WebGLRenderer}};
  const patchWebGL = (proto) => {
    if (!proto) { return; }
    proto.getParameter = new Proxy(proto.getParameter, {
      apply(target, thisArg, args) {
        if (args[0] === 37445) { return webglVendor; }
        if (args[0] === 37446) { return webglRenderer; }
        return Reflect.apply(target, thisArg, args);
      }
    });
  };
  patchWebGL(window.WebGLRenderingContext && WebGLRenderingContext.prototype);
  patchWebGL(window.WebGL2RenderingContext && WebGL2RenderingContext.prototype);

  const OriginalAudioContext = window.AudioContext || window.webkitAudioContext;
  if (OriginalAudioContext) {
    const PatchedAudioContext = function (...args) {
      const context = new OriginalAudioContext(...args);
      const originalCreateOscillator = context.createOscillator;
      context.createOscillator = function () {
        const oscillator = originalCreateOscillator.call(this);
        oscillator.frequency.value += noise() * 0.1;
        return oscillator;
      };
      return context;
    };
    PatchedAudioContext.prototype = OriginalAudioContext.prototype;
    window.AudioContext = PatchedAudioContext;
    window.webkitAudioContext = PatchedAudioContext;
  }
})();`

var scriptTemplate = template.Must(template.New("stealth").Funcs(template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
}).Parse(overrideTemplate))

// Script renders the override script for the profile. Every profile value
// is embedded as a JSON literal, so no value can break out of the script.
func (p Profile) Script() (string, error) {
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render stealth script: %w", err)
	}
	return buf.String(), nil
}
