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

// Package netkitcfg defines the validated configuration surface for a
// netkit endpoint and RMI proxy, loaded through viper and checked with
// go-playground/validator.
package netkitcfg

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Endpoint is the per-endpoint configuration surface described in §6.
type Endpoint struct {
	ReliableAddr    string        `mapstructure:"reliable_addr" validate:"required,hostname_port"`
	DatagramAddr    string        `mapstructure:"datagram_addr" validate:"omitempty,hostname_port"`
	WriteBufferLen  int           `mapstructure:"write_buffer_len" validate:"required,min=64"`
	ObjectBufferLen int           `mapstructure:"object_buffer_len" validate:"required,min=64"`
	IdleThreshold   float64       `mapstructure:"idle_threshold" validate:"gte=0,lte=1"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"omitempty,min=0"`
	KeepAlive       time.Duration `mapstructure:"keep_alive" validate:"omitempty,min=0"`
	DiscoveryAddr   string        `mapstructure:"discovery_addr" validate:"omitempty,hostname_port"`
	DiscoveryMagic  byte          `mapstructure:"discovery_magic"`
}

// DefaultEndpoint returns sane defaults matching the teacher's own
// conservative server-config defaults (generous buffers, modest timeouts).
func DefaultEndpoint() Endpoint {
	return Endpoint{
		WriteBufferLen:  16 * 1024,
		ObjectBufferLen: 8 * 1024,
		IdleThreshold:   0.75,
		Timeout:         20 * time.Second,
		KeepAlive:       5 * time.Second,
		DiscoveryMagic:  0x4B,
	}
}

// ProxyOptions is the per-proxy RMI configuration surface from §4.8.
type ProxyOptions struct {
	NonBlocking          bool          `mapstructure:"non_blocking"`
	TransmitReturnValue  bool          `mapstructure:"transmit_return_value"`
	TransmitExceptions   bool          `mapstructure:"transmit_exceptions"`
	UseUDP               bool          `mapstructure:"use_udp"`
	ResponseTimeout      time.Duration `mapstructure:"response_timeout" validate:"omitempty,min=0"`
	RememberLastResponse bool          `mapstructure:"remember_last_response"`
}

// DefaultProxyOptions mirrors the common case: blocking calls that expect a
// return value over the reliable channel.
func DefaultProxyOptions() ProxyOptions {
	return ProxyOptions{
		TransmitReturnValue: true,
		TransmitExceptions:  true,
		ResponseTimeout:     10 * time.Second,
	}
}

var validate = validator.New()

// LoadEndpoint decodes and validates an Endpoint from the given viper
// instance, starting from DefaultEndpoint so unset keys keep their default.
func LoadEndpoint(v *viper.Viper) (*Endpoint, error) {
	cfg := DefaultEndpoint()
	if v != nil {
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProxyOptions decodes and validates ProxyOptions from the given viper
// instance, starting from DefaultProxyOptions.
func LoadProxyOptions(v *viper.Viper) (*ProxyOptions, error) {
	cfg := DefaultProxyOptions()
	if v != nil {
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
