// Package server serves the built-in front-end page for the river.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
)

// IndexHandler serves the HTML front-end. It polls /text, renders
// contributed words (the [[...]] markers) distinctly from generated
// text, and posts new words to /contribute.
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Index endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>StoryRiver</title>
    <style>
        body { font-family: Georgia, serif; margin: 0; background-color: #0b1d2a; color: #dce8f0; }
        .container { max-width: 720px; margin: 0 auto; padding: 24px; }
        h1 { font-size: 1.4em; color: #7fb4d4; }
        #river {
            background-color: #102838;
            border: 1px solid #1d4258;
            border-radius: 6px;
            padding: 18px;
            min-height: 240px;
            line-height: 1.7;
            white-space: pre-wrap;
        }
        .contributed { color: #f2c879; font-weight: bold; }
        .fresh { color: #9fd8a0; }
        form { margin-top: 16px; display: flex; gap: 8px; }
        input[type="text"] {
            flex: 1;
            padding: 8px;
            background-color: #102838;
            border: 1px solid #1d4258;
            border-radius: 4px;
            color: #dce8f0;
        }
        button {
            padding: 8px 18px;
            background-color: #2a5d7c;
            color: white;
            border: none;
            border-radius: 4px;
            cursor: pointer;
        }
        button:hover { background-color: #377399; }
        #status { margin-top: 8px; min-height: 1.2em; font-size: 0.9em; color: #8aa8ba; }
    </style>
</head>
<body>
    <div class="container">
        <h1>StoryRiver</h1>
        <p>An endless story, written by a model and everyone watching. Drop a word in; the river decides where it lands.</p>
        <div id="river"></div>
        <form id="contributeForm">
            <input type="text" id="wordInput" placeholder="Add a word (max 15 characters)" maxlength="15">
            <button type="submit">Contribute</button>
        </form>
        <div id="status"></div>
    </div>

    <script>
        const riverDiv = document.getElementById('river');
        const statusDiv = document.getElementById('status');
        const wordInput = document.getElementById('wordInput');
        let lastSequence = -1;

        function escapeHtml(text) {
            const div = document.createElement('div');
            div.textContent = text;
            return div.innerHTML;
        }

        function render(data) {
            let html = escapeHtml(data.text);
            html = html.replace(/\[\[(.*?)\]\]/g, '<span class="contributed">$1</span>');
            if (data.new_text) {
                const fresh = escapeHtml(data.new_text)
                    .replace(/\[\[(.*?)\]\]/g, '<span class="contributed">$1</span>');
                const idx = html.lastIndexOf(fresh);
                if (idx >= 0) {
                    html = html.slice(0, idx) + '<span class="fresh">' + fresh + '</span>' + html.slice(idx + fresh.length);
                }
            }
            riverDiv.innerHTML = html;
        }

        async function poll() {
            try {
                const resp = await fetch('/text');
                const data = await resp.json();
                if (data.sequence !== lastSequence) {
                    lastSequence = data.sequence;
                    render(data);
                }
            } catch (err) {
                statusDiv.textContent = 'Connection lost, retrying...';
            }
        }

        document.getElementById('contributeForm').addEventListener('submit', async (e) => {
            e.preventDefault();
            const word = wordInput.value.trim();
            if (!word) return;
            try {
                const resp = await fetch('/contribute', {
                    method: 'POST',
                    headers: { 'Content-Type': 'application/json' },
                    body: JSON.stringify({ word: word })
                });
                const data = await resp.json();
                if (data.success) {
                    statusDiv.textContent = 'Your word will join the river shortly.';
                    wordInput.value = '';
                } else {
                    statusDiv.textContent = data.message || 'Contribution refused.';
                }
            } catch (err) {
                statusDiv.textContent = 'Could not reach the server.';
            }
        });

        poll();
        setInterval(poll, 2000);
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("write index page", "error", err)
	}
}
