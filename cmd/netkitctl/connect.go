/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"

	"github.com/nabbar/netkit/listener"
	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/reactor"
	"github.com/nabbar/netkit/rmi"
)

type echoProxy struct {
	*rmi.Stub
}

func (p *echoProxy) Say(msg string) string {
	ret, err := p.Invoke("Say", []reflect.Type{reflect.TypeOf("")}, []any{msg})
	if err != nil || ret == nil {
		return ""
	}
	s, _ := ret.(string)
	return s
}

type printListener struct {
	listener.Base
}

func (printListener) Received(_ listener.Conn, obj any) {
	if msg, ok := obj.(ChatMessage); ok {
		fmt.Printf("received: %s\n", msg.Text)
		return
	}
	fmt.Printf("received: %v\n", obj)
}

var (
	connectMessage string
	connectRMI     bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Dial a netkit server, send one echo message, and optionally call its RMI Echo object",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := endpointConfig()
		if err != nil {
			return err
		}

		ser, err := buildSerializer(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		cl := reactor.NewClient(ser, cfg)
		conn, err := cl.Connect(ctx, printListener{})
		if err != nil {
			return err
		}
		defer conn.Close()

		logInfof("connected as connection %d", conn.ID())

		if connectMessage != "" {
			if _, err := conn.SendTCP(ChatMessage{Text: connectMessage}); err != nil {
				return err
			}
		}

		if connectRMI {
			space := rmi.NewObjectSpace(1)
			sess := space.Attach(conn)
			proxy := &echoProxy{Stub: rmi.NewStub(sess, 1, 1, echoType, netkitcfg.DefaultProxyOptions())}
			fmt.Println("rmi Say ->", proxy.Say(connectMessage))
		}

		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectMessage, "message", "hello from netkitctl", "message to send once connected")
	connectCmd.Flags().BoolVar(&connectRMI, "rmi", false, "also call the server's Echo.Say via RMI")
	rootCmd.AddCommand(connectCmd)
}
