package devserver

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// OverlayPath serves the error overlay script injected into HTML pages.
const OverlayPath = "/__river/overlay.js"

// OverlayScript shows compiler errors pushed over the event stream and
// reloads the page after a clean compile when hot replacement is off.
const OverlayScript = `(() => {
  if (window.__RIVER_OVERLAY__) return;
  window.__RIVER_OVERLAY__ = true;
  let hot = false, box = null;
  function show(lines) {
    if (!box) { box = document.createElement('pre'); box.style.cssText = 'position:fixed;inset:0;margin:0;padding:2em;overflow:auto;z-index:2147483647;background:rgba(0,0,0,.85);color:#e8e8e8;font:13px/1.4 monospace;white-space:pre-wrap'; document.body.appendChild(box); }
    box.textContent = lines.join('\n\n');
  }
  function hide() { if (box) { box.remove(); box = null; } }
  function connect() {
    const es = new EventSource('` + SocketPath + `');
    let first = true;
    es.onmessage = (e) => {
      let m; try { m = JSON.parse(e.data); } catch (_) { return; }
      if (m.type === 'hot') { hot = true; return; }
      if (m.type === 'errors') { show(m.data || []); return; }
      if (m.type === 'ok' || m.type === 'warnings') {
        hide();
        if (!first && !hot) location.reload();
        first = false;
      }
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`

// InjectScript adds a script tag loading src at the end of the document
// body. Documents without a body get one.
func InjectScript(doc []byte, src string) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}
	body := findElement(root, atom.Body)
	if body == nil {
		htmlNode := findElement(root, atom.Html)
		if htmlNode == nil {
			return doc, nil
		}
		body = &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
		htmlNode.AppendChild(body)
	}
	body.AppendChild(&html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr:     []html.Attribute{{Key: "src", Val: src}},
	})

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
