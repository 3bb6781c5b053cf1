package devserver

// Endpoint paths served next to the destination tree.
const (
	ClientScriptPath = "/__livereload.js"
	SSEPath          = "/__livereload"
	WebSocketPath    = "/__livereload/ws"
)

// clientScript connects over WebSocket and falls back to SSE. A liveCSS
// message re-requests every stylesheet with a cache-busting query instead of
// reloading the page.
const clientScript = `(() => {
  if (window.__MARKUP_LR__) return;
  window.__MARKUP_LR__ = true;
  const swapStyles = () => {
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href, location.href);
      if (url.origin !== location.origin) return;
      url.searchParams.set('livereload', Date.now().toString());
      const next = link.cloneNode();
      next.href = url.toString();
      next.onload = () => link.remove();
      link.after(next);
    });
  };
  const handle = (raw) => {
    let msg;
    try { msg = JSON.parse(raw); } catch (_) { return; }
    if (msg.command !== 'reload') return;
    if (msg.liveCSS) { swapStyles(); return; }
    location.reload();
  };
  const sse = () => {
    const es = new EventSource('` + SSEPath + `');
    es.onmessage = (e) => handle(e.data);
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  };
  const connect = () => {
    if (!('WebSocket' in window)) { sse(); return; }
    const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    const ws = new WebSocket(proto + '//' + location.host + '` + WebSocketPath + `');
    let opened = false;
    ws.onopen = () => { opened = true; };
    ws.onmessage = (e) => handle(e.data);
    ws.onclose = () => { if (opened) { setTimeout(connect, 2000); } else { sse(); } };
  };
  connect();
})();
`
