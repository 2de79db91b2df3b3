package dashboard

import "html/template"

var pageTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} · painel</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: #1e293b; padding: 1.25rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.4rem; color: #38bdf8; }
        .header a { color: #94a3b8; font-size: 0.85rem; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 1rem; padding: 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 10px; padding: 1.25rem; }
        .card .label { font-size: 0.7rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.4rem; }
        .card .value { font-size: 1.8rem; font-weight: 700; }
        .ok .value { color: #4ade80; }
        .warn .value { color: #fbbf24; }
        .err .value { color: #f87171; }
        h2 { padding: 0 2rem; font-size: 1rem; color: #94a3b8; }
        table { margin: 1rem 2rem 2rem; border-collapse: collapse; width: calc(100% - 4rem); font-size: 0.85rem; }
        th, td { text-align: left; padding: 0.5rem; border-bottom: 1px solid #334155; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        {{if .SiteURL}}<a href="{{.SiteURL}}">{{.SiteURL}}</a>{{end}}
    </div>
    <div class="grid">
        <div class="card"><div class="label">Execuções</div><div class="value" id="runs_total">0</div></div>
        <div class="card warn"><div class="label">Execuções bloqueadas</div><div class="value" id="runs_blocked">0</div></div>
        <div class="card"><div class="label">Tópicos</div><div class="value" id="topics_total">0</div></div>
        <div class="card ok"><div class="label">Publicados</div><div class="value" id="topics_published">0</div></div>
        <div class="card err"><div class="label">Falhas</div><div class="value" id="topics_failed">0</div></div>
        <div class="card warn"><div class="label">Retentativas de reescrita</div><div class="value" id="rewrite_retries">0</div></div>
        <div class="card ok"><div class="label">Pings OK</div><div class="value" id="pings_ok">0</div></div>
    </div>
    <h2>Execuções recentes</h2>
    <table>
        <thead><tr><th>Início</th><th>Status</th><th>Tópicos</th><th>Publicados</th><th>Ignorados</th></tr></thead>
        <tbody id="runs"></tbody>
    </table>
    <div class="footer">{{.Title}} {{.Version}}</div>
    <script>
        const counters = ['runs_total','runs_blocked','topics_total','topics_published','topics_failed','rewrite_retries','pings_ok'];
        function cell(text) { const td = document.createElement('td'); td.textContent = text; return td; }
        async function refresh() {
            try {
                const s = await (await fetch('/api/stats')).json();
                counters.forEach(k => { const el = document.getElementById(k); if (el && s[k] !== undefined) el.textContent = Number(s[k]).toLocaleString('pt-BR'); });
                const runs = await (await fetch('/api/runs')).json();
                const body = document.getElementById('runs');
                body.replaceChildren();
                (runs || []).slice(0, 20).forEach(r => {
                    const tr = document.createElement('tr');
                    const sum = r.summary || {};
                    const skipped = Object.values(sum.skipped_by_reason || {}).reduce((a, b) => a + b, 0);
                    [new Date(r.started_at).toLocaleString('pt-BR'), r.status, (r.topics || []).join(', '), sum.persisted ?? '-', skipped].forEach(v => tr.appendChild(cell(v)));
                    body.appendChild(tr);
                });
            } catch (e) {}
        }
        setInterval(refresh, {{.Refresh}});
        refresh();
    </script>
</body>
</html>`))
