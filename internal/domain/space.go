package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SpaceState string

const (
	EstadoLibre       SpaceState = "LIBRE"
	EstadoOcupado     SpaceState = "OCUPADO"
	EstadoPendiente   SpaceState = "PENDIENTE"
	EstadoVerificar   SpaceState = "VERIFICAR"
	EstadoSinConexion SpaceState = "SIN_CONEXION"
)

func (s SpaceState) Valid() bool {
	switch s {
	case EstadoLibre, EstadoOcupado, EstadoPendiente, EstadoVerificar, EstadoSinConexion:
		return true
	}
	return false
}

// Space es un espacio físico del estacionamiento (estacionamientos/{id}).
// Los campos de sesión se serializan como null cuando el espacio está libre.
type Space struct {
	ID                  string      `json:"id"`
	Estado              SpaceState  `json:"estado"`
	Patente             null.String `json:"patente"`
	HoraEntrada         null.String `json:"horaEntrada"`
	HoraSalida          null.String `json:"horaSalida"`
	TiempoOcupado       null.Int    `json:"tiempoOcupado"`
	Costo               null.Int    `json:"costo"`
	UltimaActualizacion null.Time   `json:"ultimaActualizacion"`
	PendienteTicket     bool        `json:"pendienteTicket"`
}

// Reset deja el espacio LIBRE y borra los datos de la sesión.
func (s *Space) Reset() {
	s.Estado = EstadoLibre
	s.Patente = null.String{}
	s.HoraEntrada = null.String{}
	s.HoraSalida = null.String{}
	s.TiempoOcupado = null.Int{}
	s.Costo = null.Int{}
	s.PendienteTicket = false
}

// Touch marca la última actualización del espacio.
func (s *Space) Touch(now time.Time) {
	s.UltimaActualizacion = null.TimeFrom(now.UTC())
}

// SpaceCounts resume cuántos espacios hay en cada estado.
type SpaceCounts struct {
	Total       int `json:"total"`
	Libres      int `json:"libres"`
	Ocupados    int `json:"ocupados"`
	Pendientes  int `json:"pendientes"`
	Verificar   int `json:"verificar"`
	SinConexion int `json:"sinConexion"`
}

func CountSpaces(spaces []Space) SpaceCounts {
	c := SpaceCounts{Total: len(spaces)}
	for _, s := range spaces {
		switch s.Estado {
		case EstadoLibre:
			c.Libres++
		case EstadoOcupado:
			c.Ocupados++
		case EstadoPendiente:
			c.Pendientes++
		case EstadoVerificar:
			c.Verificar++
		case EstadoSinConexion:
			c.SinConexion++
		}
	}
	return c
}

type PlateUpdateDTO struct {
	Patente string `json:"patente" binding:"required,min=4,max=10"`
}
