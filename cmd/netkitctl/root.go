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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/netkit/netkitcfg"
	"github.com/nabbar/netkit/netkitlog"
	"github.com/nabbar/netkit/reactor"
	"github.com/nabbar/netkit/rmi"
	"github.com/nabbar/netkit/serialize"
)

// ChatMessage is the one application message type netkitctl exchanges over
// the reliable channel; serve and connect must register it in the same
// order on both sides, so buildSerializer is the single place that does it.
type ChatMessage struct {
	Text string
}

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "netkitctl",
	Short: "Drive a netkit endpoint from the command line",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	v.SetEnvPrefix("netkit")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml/json/toml, loaded via viper)")
	flags.String("reliable-addr", "127.0.0.1:7890", "reliable (TCP) bind or dial address")
	flags.String("datagram-addr", "127.0.0.1:7891", "datagram (UDP) bind or dial address")
	flags.String("discovery-addr", "0.0.0.0:7892", "LAN discovery bind or probe address")
	flags.Uint8("discovery-magic", 0x4B, "discovery probe magic byte")

	_ = v.BindPFlag("reliable_addr", flags.Lookup("reliable-addr"))
	_ = v.BindPFlag("datagram_addr", flags.Lookup("datagram-addr"))
	_ = v.BindPFlag("discovery_addr", flags.Lookup("discovery-addr"))
	_ = v.BindPFlag("discovery_magic", flags.Lookup("discovery-magic"))
}

// endpointConfig builds a netkitcfg.Endpoint from whatever config file,
// environment variables, and flags the user supplied, starting from the
// library's own sane defaults.
func endpointConfig() (netkitcfg.Endpoint, error) {
	cfg, err := netkitcfg.LoadEndpoint(v)
	if err != nil {
		return netkitcfg.Endpoint{}, err
	}
	return *cfg, nil
}

func logInfof(format string, args ...any) {
	netkitlog.Logf(netkitlog.InfoLevel, format, args...)
}

// buildSerializer registers, in a fixed order, every type netkitctl puts on
// the wire: the reactor's handshake frames, the RMI envelope types, then
// ChatMessage. Both serve and connect call this so their type ids line up.
func buildSerializer(cfg netkitcfg.Endpoint) (serialize.Serialization, error) {
	ser := reactor.NewSerializer(cfg.ObjectBufferLen)
	if err := rmi.RegisterWireTypes(ser); err != nil {
		return nil, err
	}
	if _, err := ser.RegisterType(ChatMessage{}); err != nil {
		return nil, err
	}
	return ser, nil
}
