package ui

// indexHTML is the minimal graph page shell. The graph itself arrives as
// datastar signal patches over /graph/updates; rendering is left to the
// page script so the server only ever ships state.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>FlowViz</title>
  <script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
</head>
<body data-signals="{graph: {nodes: [], edges: []}, running: false, executionError: '', stats: {}}"
      data-on-load="@get('/graph/updates')">
  <header>
    <button data-on-click="@post('/run')">Run</button>
    <button data-on-click="@post('/cancel')">Cancel</button>
    <span data-show="$running">running…</span>
    <span data-show="$executionError != ''" data-text="$executionError"></span>
  </header>
  <main id="graph" data-json-signals="{include: /^graph/}"></main>
</body>
</html>
`
