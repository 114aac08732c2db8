package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
)

type renderCmd struct {
	Pattern string `arg:"-p,--pattern" help:"conversion pattern, e.g. \"%d [%t] %p %c - %m%n\"" default:"%m%n"`
	Replace string `arg:"--replace" help:"regex applied to every rendered record"`
	With    string `arg:"--with" help:"replacement text for --replace"`
}

type nextCmd struct {
	FilePattern string `arg:"-f,--file-pattern,required" help:"rollover file pattern, e.g. app-%d{yyyy-MM-dd}.log"`
	At          string `arg:"--at" help:"start instant (RFC 3339); defaults to now"`
	Count       int    `arg:"-n,--count" default:"5" help:"number of boundaries to print"`
	Interval    int    `arg:"--interval" default:"1" help:"units between rollovers"`
	Modulate    bool   `arg:"--modulate" help:"align boundaries to multiples of the interval"`
	Locale      string `arg:"--locale" help:"locale whose first weekday starts weekly periods"`
	Timezone    string `arg:"--timezone" help:"IANA zone for boundaries; defaults to local"`
}

type serveCmd struct {
	Config string `arg:"-c,--config" default:"./patternlog.json" help:"path to config json or yaml"`
	Layout string `arg:"-l,--layout" help:"layout that renders stdin lines"`
	Target string `arg:"-t,--target" help:"rollover target that renders stdin lines (overrides --layout)"`
}

type cliArgs struct {
	Render *renderCmd `arg:"subcommand:render" help:"render stdin lines through a pattern"`
	Next   *nextCmd   `arg:"subcommand:next" help:"print the next rollover boundaries of a file pattern"`
	Serve  *serveCmd  `arg:"subcommand:serve" help:"run with a config file, rendering stdin through a layout"`
}

func (cliArgs) Description() string {
	return `patternlog renders log records through conversion patterns and schedules
time-based rollovers derived from file-name date patterns.

Pattern syntax: %[-][min][.max]name{option}... where name is a converter such
as d (date), p (level), c (logger), m (message), t (thread), X (context),
x (stack), ex (error), n (newline), u (uuid), sn (sequence), r (relative), pid.
Escape a literal percent with %%.

Input lines that are zerolog JSON objects are decoded into records; any other
line becomes the message of an INFO record stamped with the current time.

Examples:
  patternlog render -p "%d{HH:mm:ss.SSS} %-5p %m%n" < app.log
  patternlog next -f "logs/app-%d{yyyy-MM-dd-HH}.log" --interval 4 --modulate
  patternlog serve -c ./patternlog.json -t app
`
}

func main() {
	var args cliArgs
	p := arg.MustParse(&args)

	var err error
	switch {
	case args.Render != nil:
		err = runRender(args.Render, os.Stdin, os.Stdout)
	case args.Next != nil:
		err = runNext(args.Next, os.Stdout)
	case args.Serve != nil:
		err = runServe(args.Serve, os.Stdin, os.Stdout)
	default:
		p.WriteHelp(os.Stdout)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
