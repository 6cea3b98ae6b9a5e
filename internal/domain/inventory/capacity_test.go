package inventory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/inventory"
)

// La regla rechaza si y solo si capacidad - en tienda < solicitadas, para todo n >= 0.
func TestCheckCapacity_RechazaSiYSoloSiNoAlcanza(t *testing.T) {
	for _, maxCap := range []int{1, 2, 5, 10} {
		for inStore := 0; inStore <= maxCap; inStore++ {
			for n := 0; n <= maxCap+2; n++ {
				err := inventory.CheckCapacity("w1", maxCap, inStore, n)
				shouldReject := maxCap-inStore < n
				if shouldReject {
					require.Error(t, err, "max=%d en_tienda=%d n=%d debe rechazar", maxCap, inStore, n)
					assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))
				} else {
					assert.NoError(t, err, "max=%d en_tienda=%d n=%d debe admitir", maxCap, inStore, n)
				}
			}
		}
	}
}

func TestCheckCapacity_ErrorLlevaDiagnostico(t *testing.T) {
	err := inventory.CheckCapacity("w-full", 3, 2, 4)
	require.Error(t, err)

	var capErr *domain.CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "w-full", capErr.WarehouseID)
	assert.Equal(t, 4, capErr.Requested)
	assert.Equal(t, 1, capErr.Available)
}

func TestCheckCapacity_SolicitudNegativa(t *testing.T) {
	err := inventory.CheckCapacity("w1", 3, 0, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckCapacity_SobreocupadaRechazaCero(t *testing.T) {
	err := inventory.CheckCapacity("w1", 2, 3, 0)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestAvailable_NoNegativo(t *testing.T) {
	assert.Equal(t, 0, inventory.Available(2, 5))
	assert.Equal(t, 3, inventory.Available(5, 2))
}
