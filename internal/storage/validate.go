package storage

import "lbp-lab/internal/domain"

// ValidateRequestLog checks the fields every store requires.
func ValidateRequestLog(l *domain.RequestLog) error {
	if l == nil || l.Kind == "" || l.Status == "" || l.RequestedAt <= 0 {
		return ErrInvalidInput
	}
	return nil
}
