/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package store

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/storagesync/pkg/models"
)

// ErrCAParsingFailed is returned when the CA certificate cannot be parsed.
var ErrCAParsingFailed = errors.New("failed to parse CA certificate")

// natsOptions builds the connection options for the configured security
// mode. Without a TLS section the connection is plain.
func natsOptions(cfg *models.StoreConfig) ([]nats.Option, error) {
	if cfg.TLS == nil {
		return nil, nil
	}

	tlsConf, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}

	return []nats.Option{nats.Secure(tlsConf)}, nil
}

// buildTLSConfig loads the client keypair and CA bundle for mutual TLS to
// the NATS server.
func buildTLSConfig(sec *models.TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(sec.CertFile, sec.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(sec.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, ErrCAParsingFailed
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ServerName:   sec.ServerName,
		MinVersion:   tls.VersionTLS13,
	}, nil
}
