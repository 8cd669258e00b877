package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aris/internal/bootstrap"
	"aris/internal/usecase"
)

// console dispatches typed lines to the assembled services.
type console struct {
	services *bootstrap.Services
	sink     *consoleSink
}

func newConsole(services *bootstrap.Services, sink *consoleSink) *console {
	return &console{services: services, sink: sink}
}

func (c *console) banner() {
	c.sink.println(titleStyle.Render("aris")+" "+statusStyle.Render("say \""+c.services.Config.Voice.WakePhrase+"\" or type a message"))
	c.sink.println(statusStyle.Render("/voice on|off  /status  /effects  /clear  /remember <note>  /quit"))
}

// handle runs one line and reports whether the console should exit.
func (c *console) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		if _, err := c.services.Orchestrator.Submit(ctx, line, nil); err != nil {
			c.fail(err)
		}
		return false
	}

	command, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(command) {
	case "quit", "exit":
		return true
	case "voice":
		c.voice(arg)
	case "status":
		status := c.services.Listener.Status()
		c.sink.println(statusStyle.Render(fmt.Sprintf("voice: %s  listening: %t  busy: %t", status.Listener, status.Listening, c.services.Orchestrator.Busy())))
	case "effects":
		c.sink.println(effectStyle.Render("effects: "+describeEffects(c.services.Effects.Active())))
	case "clear":
		c.services.Orchestrator.ClearMessages()
		c.services.Effects.Clear()
		c.sink.println(statusStyle.Render("cleared"))
	case "remember":
		item, err := c.services.Memory.AddMemory(ctx, arg)
		if err != nil {
			c.fail(err)
			return false
		}
		c.sink.println(statusStyle.Render("remembered: "+item.Content))
	case "describe", "game":
		if _, err := c.services.Orchestrator.QuickAction(ctx, usecase.QuickAction(command), nil); err != nil {
			c.fail(err)
		}
	default:
		c.fail(fmt.Errorf("unknown command %q", command))
	}
	return false
}

func (c *console) voice(arg string) {
	var err error
	switch strings.ToLower(arg) {
	case "on":
		err = c.services.Listener.Enable()
	case "off":
		err = c.services.Listener.Disable()
	default:
		err = errors.New("usage: /voice on|off")
	}
	if err != nil {
		c.fail(err)
	}
}

func (c *console) fail(err error) {
	c.sink.println(errorStyle.Render(err.Error()))
}
