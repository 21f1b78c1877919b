// ABOUTME: Help display for the sitekit CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for admin key detection.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, examples and environment status.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "sitekit %s - static site builder and local admin server\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sitekit build [flags]               Build the site into dist/")
	fmt.Fprintln(w, "  sitekit serve [flags]               Serve the site with admin endpoints")
	fmt.Fprintln(w, "  sitekit help                        Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Build Flags:")
	fmt.Fprintln(w, "  -dir <dir>            Project root (default: current directory)")
	fmt.Fprintln(w, "  -output <dir>         Output directory (default: dist, or sitekit.yaml)")
	fmt.Fprintln(w, "  -markdown             Render .md files to HTML pages")
	fmt.Fprintln(w, "  -quiet                Suppress the build summary")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Serve Flags:")
	fmt.Fprintln(w, "  -root <dir>           Directory to serve (default: dist)")
	fmt.Fprintln(w, "  -env-file <path>      Env file to read (default: .env)")
	fmt.Fprintln(w, "  -app-entry <path>     Client app entry; shows build instructions until -root exists")
	fmt.Fprintln(w, "  -format <json|js>     Save-data format (default: json)")
	fmt.Fprintln(w, "  -data-file <path>     Data file relative to -root")
	fmt.Fprintln(w, "  -port <port>          Port to listen on (default: PORT or 8000)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  sitekit build")
	fmt.Fprintln(w, "  sitekit build -dir ./site -markdown")
	fmt.Fprintln(w, "  sitekit serve -root public")
	fmt.Fprintln(w, "  sitekit serve -root dist -app-entry src/main.jsx -port 3000")
	fmt.Fprintln(w, "  sitekit serve -format js")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  ADMIN_PASSWORD        %s\n", envStatus("ADMIN_PASSWORD"))
	fmt.Fprintf(w, "  SESSION_TIMEOUT       %s\n", envStatus("SESSION_TIMEOUT"))
	fmt.Fprintf(w, "  PORT                  %s\n", envStatus("PORT"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Values may also come from the env file; the process environment wins.")
	fmt.Fprintln(w, "  Without ADMIN_PASSWORD every login attempt is rejected.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Docs: https://github.com/2389-research/sitekit")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
