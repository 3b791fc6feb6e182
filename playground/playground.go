// Package playground serves an interactive query explorer on GET requests.
package playground

import "net/http"

type PlaygroundProvider interface {
	ServePlayground(w http.ResponseWriter, r *http.Request)
}

// DefaultPlayground serves a GraphiQL page pulling its assets from a CDN.
type DefaultPlayground struct{}

var _ PlaygroundProvider = DefaultPlayground{}

func (DefaultPlayground) ServePlayground(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(graphiqlPage))
}

const graphiqlPage = `<!DOCTYPE html>
<html>
<head>
	<title>holonet</title>
	<style>
		body { height: 100%; margin: 0; width: 100%; overflow: hidden; }
		#graphiql { height: 100vh; }
	</style>
	<link rel="stylesheet" href="https://unpkg.com/graphiql/graphiql.min.css" />
</head>
<body>
	<div id="graphiql">Loading...</div>
	<script src="https://unpkg.com/react/umd/react.production.min.js"></script>
	<script src="https://unpkg.com/react-dom/umd/react-dom.production.min.js"></script>
	<script src="https://unpkg.com/graphiql/graphiql.min.js"></script>
	<script>
		const fetcher = GraphiQL.createFetcher({ url: window.location.href });
		ReactDOM.render(
			React.createElement(GraphiQL, { fetcher: fetcher }),
			document.getElementById('graphiql'),
		);
	</script>
</body>
</html>
`
