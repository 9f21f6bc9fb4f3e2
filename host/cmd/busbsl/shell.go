package main

import (
	"io"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/rs/zerolog"

	"buspirate/host/probe"
)

const sessionKey = "$session"

// runShell connects and either runs the one command given in args or
// starts an interactive ishell session
func runShell(cfg *probe.Config, args []string, stdout io.Writer, log zerolog.Logger) error {
	p, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	s := &session{p: p, out: stdout}
	if len(args) > 0 {
		return s.dispatch(args)
	}

	sh := newShell(s)
	sh.Println("Bus Pirate shell, type 'help' for commands")
	sh.Run()
	return nil
}

func newShell(s *session) *ishell.Shell {
	sh := ishell.New()
	sh.Set(sessionKey, s)
	sh.SetPrompt(prompt(s.p))
	for _, c := range commands {
		sh.AddCmd(shellCmd(c))
	}
	return sh
}

func sessionFrom(c *ishell.Context) *session {
	return c.Get(sessionKey).(*session)
}

// shellCmd adapts a command to ishell, keeping the prompt on the mode
func shellCmd(cmd command) *ishell.Cmd {
	help := cmd.help
	if cmd.usage != "" {
		help = cmd.usage + ": " + help
	}
	return &ishell.Cmd{
		Name: cmd.name,
		Help: help,
		Func: func(c *ishell.Context) {
			s := sessionFrom(c)
			if err := cmd.run(s, c.Args); err != nil {
				c.Err(err)
			}
			c.SetPrompt(prompt(s.p))
		},
	}
}

func prompt(p *probe.Probe) string {
	return strings.ToUpper(p.Mode().String()) + "> "
}
