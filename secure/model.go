/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package secure

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"time"

	libcnx "github.com/whit3rabbit/zigcat/connection"

	tlscpr "github.com/nabbar/golib/certificates/cipher"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
)

const defaultHandshakeTimeout = 30 * time.Second

type adp struct {
	c Config
	s bool // server side
	l liblog.FuncLog

	t *tls.Config
	r *x509.RevocationList
	p *x509.CertPool // explicit trust pool, nil means system pool
	u int            // effective dtls mtu
}

func (o *adp) logWarning(msg string, arg ...any) {
	if o.l == nil {
		return
	} else if l := o.l(); l == nil {
		return
	} else {
		l.Entry(loglvl.WarnLevel, msg, arg...).Log()
	}
}

func (o *adp) MTU() int {
	return o.u
}

func (o *adp) timeout() time.Duration {
	if t := o.c.HandshakeTimeout.Time(); t > 0 {
		return t
	}

	return defaultHandshakeTimeout
}

func (o *adp) build() liberr.Error {
	switch {
	case o.c.MTU == 0:
		o.u = MTUDefault
	case o.c.MTU < MTUMin || o.c.MTU > MTUMax:
		return ErrorMTURange.Error(nil)
	default:
		o.u = o.c.MTU
	}

	t := o.c.Certificates.New()

	if len(o.c.CertFile) > 0 || len(o.c.KeyFile) > 0 {
		if e := t.AddCertificatePairFile(o.c.KeyFile, o.c.CertFile); e != nil {
			return ErrorCertificateLoad.Error(e)
		}
	}

	if len(o.c.TrustFile) > 0 {
		if e := t.AddRootCAFile(o.c.TrustFile); e != nil {
			return ErrorTrustLoad.Error(e)
		}

		p, e := loadPool(o.c.TrustFile)
		if e != nil {
			return ErrorTrustLoad.Error(e)
		}

		o.p = p
	}

	if len(o.c.CRLFile) > 0 {
		r, e := loadCRL(o.c.CRLFile)
		if e != nil {
			return ErrorCRLLoad.Error(e)
		}

		o.r = r
	}

	cfg := t.TlsConfig(o.c.ServerName)

	if len(o.c.ALPN) > 0 {
		cfg.NextProtos = append([]string{}, o.c.ALPN...)
	}

	if len(o.c.Ciphers) > 0 {
		var lst []uint16

		for _, s := range o.c.Ciphers {
			if c := tlscpr.Parse(s); tlscpr.Check(c.Uint16()) {
				lst = append(lst, c.Uint16())
			} else {
				o.logWarning("skipping unknown cipher suite '%s'", s)
			}
		}

		if len(lst) > 0 {
			cfg.CipherSuites = lst
		}
	}

	if o.s {
		if len(cfg.Certificates) == 0 {
			return ErrorCertificateRequired.Error(nil)
		}

		if o.c.Verify {
			cfg.ClientAuth = tls.RequireAndVerifyClientCert
			if o.p != nil {
				cfg.ClientCAs = o.p
			}
		}
	} else {
		cfg.InsecureSkipVerify = !o.c.Verify
		if o.p != nil {
			cfg.RootCAs = o.p
		}
	}

	if o.r != nil {
		cfg.VerifyPeerCertificate = o.checkRevocation
	}

	o.t = cfg
	return nil
}

// checkRevocation rejects any peer leaf or intermediate whose serial is in
// the configured revocation list.
func (o *adp) checkRevocation(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	for _, raw := range rawCerts {
		c, e := x509.ParseCertificate(raw)
		if e != nil {
			continue
		}

		for _, rv := range o.r.RevokedCertificateEntries {
			if rv.SerialNumber != nil && rv.SerialNumber.Cmp(c.SerialNumber) == 0 {
				return ErrorCRLRevoked.Error(nil)
			}
		}
	}

	return nil
}

func (o *adp) ConnectTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error) {
	if cnx.Type() == libcnx.TypeDTLS {
		return nil, ErrorNotStream.Error(nil)
	}

	c := tls.Client(cnx.NetConn(), o.t.Clone())

	if e := o.handshake(c); e != nil {
		return nil, e
	}

	return libcnx.New(c, libcnx.TypeTLS, o.l), nil
}

func (o *adp) AcceptTLS(cnx libcnx.Connection) (libcnx.Connection, liberr.Error) {
	if cnx.Type() == libcnx.TypeDTLS {
		return nil, ErrorNotStream.Error(nil)
	}

	c := tls.Server(cnx.NetConn(), o.t.Clone())

	if e := o.handshake(c); e != nil {
		return nil, e
	}

	return libcnx.New(c, libcnx.TypeTLS, o.l), nil
}

func (o *adp) handshake(c *tls.Conn) liberr.Error {
	x, cnl := context.WithTimeout(context.Background(), o.timeout())
	defer cnl()

	if e := c.HandshakeContext(x); e != nil {
		_ = c.Close()

		var u x509.UnknownAuthorityError
		var h x509.HostnameError
		var i x509.CertificateInvalidError

		switch {
		case isAs(e, &u), isAs(e, &h), isAs(e, &i):
			return ErrorVerify.Error(e)
		}

		return ErrorHandshake.Error(e)
	}

	return nil
}

func isAs[T any](err error, target *T) bool {
	return errors.As(err, target)
}

func loadPool(file string) (*x509.CertPool, error) {
	b, e := os.ReadFile(file)
	if e != nil {
		return nil, e
	}

	p := x509.NewCertPool()
	if !p.AppendCertsFromPEM(b) {
		return nil, ErrorTrustLoad.Error(nil)
	}

	return p, nil
}

func loadCRL(file string) (*x509.RevocationList, error) {
	b, e := os.ReadFile(file)
	if e != nil {
		return nil, e
	}

	if d, _ := pem.Decode(b); d != nil {
		b = d.Bytes
	}

	return x509.ParseRevocationList(b)
}
