package certs

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestFileManager_GetOrCreateCertificate(t *testing.T) {
	tests := []struct {
		setup   func(t *testing.T, certDir string)
		check   func(t *testing.T, m *FileManager, cert tls.Certificate)
		name    string
		wantErr bool
	}{
		{
			name:  "creates new certificate when none exists",
			setup: func(*testing.T, string) {},
			check: func(t *testing.T, m *FileManager, cert tls.Certificate) {
				t.Helper()
				x509Cert := leaf(t, cert)
				assert.Equal(t, "bloomfi local", x509Cert.Subject.Organization[0])
				assert.Contains(t, x509Cert.DNSNames, "localhost")
				assert.NoError(t, x509Cert.VerifyHostname("localhost"))
				assert.FileExists(t, m.CertFile())
			},
		},
		{
			name: "reuses existing valid certificate",
			setup: func(t *testing.T, certDir string) {
				t.Helper()
				_, err := NewFileManager(certDir).GetOrCreateCertificate()
				require.NoError(t, err)
			},
			check: func(t *testing.T, m *FileManager, cert tls.Certificate) {
				t.Helper()
				again, err := m.GetOrCreateCertificate()
				require.NoError(t, err)
				assert.Equal(t, leaf(t, cert).SerialNumber, leaf(t, again).SerialNumber)
			},
		},
		{
			name: "regenerates unreadable certificate",
			setup: func(t *testing.T, certDir string) {
				t.Helper()
				require.NoError(t, os.MkdirAll(certDir, 0700))
				require.NoError(t, os.WriteFile(filepath.Join(certDir, "localhost.crt"), []byte("invalid certificate data"), 0600))
				require.NoError(t, os.WriteFile(filepath.Join(certDir, "localhost.key"), []byte("invalid key data"), 0600))
			},
			check: func(t *testing.T, _ *FileManager, cert tls.Certificate) {
				t.Helper()
				assert.True(t, leaf(t, cert).NotBefore.After(time.Now().Add(-2*time.Minute)))
			},
		},
		{
			name: "fails when the directory path is a file",
			setup: func(t *testing.T, certDir string) {
				t.Helper()
				require.NoError(t, os.MkdirAll(filepath.Dir(certDir), 0700))
				require.NoError(t, os.WriteFile(certDir, []byte("not a directory"), 0600))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certDir := filepath.Join(t.TempDir(), "certs")
			tt.setup(t, certDir)

			m := NewFileManager(certDir)
			cert, err := m.GetOrCreateCertificate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, m, cert)
		})
	}
}

func TestFileManager_RegeneratesExpiredCertificate(t *testing.T) {
	certDir := t.TempDir()
	m := NewFileManager(certDir)
	m.now = func() time.Time { return time.Now().Add(-2 * Validity) }

	old, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	m.now = time.Now
	fresh, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	assert.NotEqual(t, leaf(t, old).SerialNumber, leaf(t, fresh).SerialNumber)
	assert.True(t, leaf(t, fresh).NotAfter.After(time.Now()))
}

func TestFileManager_CertificateExists(t *testing.T) {
	certDir := t.TempDir()
	m := NewFileManager(certDir)

	exists, err := m.CertificateExists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(filepath.Join(certDir, "localhost.crt"), []byte("x"), 0600))
	exists, err = m.CertificateExists()
	require.NoError(t, err)
	assert.False(t, exists, "key file still missing")

	require.NoError(t, os.WriteFile(filepath.Join(certDir, "localhost.key"), []byte("x"), 0600))
	exists, err = m.CertificateExists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileManager_verifyCertificate(t *testing.T) {
	m := NewFileManager(t.TempDir())

	assert.ErrorIs(t, m.verifyCertificate(tls.Certificate{}), errNoCertificate)
	assert.Error(t, m.verifyCertificate(tls.Certificate{Certificate: [][]byte{{1, 2, 3}}}))

	cert, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	assert.NoError(t, m.verifyCertificate(cert))
}

func TestCertificateProperties(t *testing.T) {
	certDir := t.TempDir()
	cert, err := NewFileManager(certDir).GetOrCreateCertificate()
	require.NoError(t, err)
	x509Cert := leaf(t, cert)

	assert.Contains(t, x509Cert.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.True(t, x509Cert.IPAddresses[0].Equal(net.IPv4(127, 0, 0, 1)))
	assert.WithinDuration(t, time.Now().Add(Validity), x509Cert.NotAfter, time.Hour)

	info, err := os.Stat(filepath.Join(certDir, "localhost.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
