package nexus

import "crypto/tls"

// buildTLSConfig translates QuicConfiguration.Credentials and ALPN into
// a *tls.Config for quicstack.ListenConfig/DialConfig. Server role loads
// a certificate/key pair (validated present by QuicConfiguration.validate);
// client role skips verification when Credentials.SkipVerification is set.
func buildTLSConfig(cfg QuicConfiguration) (*tls.Config, *Error) {
	tlsCfg := &tls.Config{NextProtos: []string{cfg.ALPN}}

	if cfg.Role == RoleServer {
		cert, err := tls.LoadX509KeyPair(cfg.Credentials.CertificatePath, cfg.Credentials.PrivateKeyPath)
		if err != nil {
			return nil, newErr(ErrConfigurationLoadCredentialFailed, err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
		return tlsCfg, nil
	}

	if cfg.Credentials.CertificatePath != "" && cfg.Credentials.PrivateKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Credentials.CertificatePath, cfg.Credentials.PrivateKeyPath)
		if err != nil {
			return nil, newErr(ErrConfigurationLoadCredentialFailed, err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	tlsCfg.InsecureSkipVerify = cfg.Credentials.SkipVerification
	return tlsCfg, nil
}
