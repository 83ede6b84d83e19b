// Package catalog serves the reference data the core references by foreign
// key: sellers, cooperators, drivers, vehicles, seeds, varieties, categories,
// units, clients and services. All ten share one table-driven CRUD shape;
// names are unique per catalog after diacritic folding, so "Maíz" and "Maiz"
// collide.
package catalog

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tipo names one catalog.
type Tipo string

const (
	TipoSemillera  Tipo = "semilleras"
	TipoCooperador Tipo = "cooperadores"
	TipoConductor  Tipo = "conductores"
	TipoVehiculo   Tipo = "vehiculos"
	TipoSemilla    Tipo = "semillas"
	TipoVariedad   Tipo = "variedades"
	TipoCategoria  Tipo = "categorias"
	TipoUnidad     Tipo = "unidades"
	TipoCliente    Tipo = "clientes"
	TipoServicio   Tipo = "servicios"
)

// descriptor maps a catalog to its table layout.
type descriptor struct {
	tabla string
	colID string
	// colPadre names the FK column for catalogs scoped under another one
	// (varieties under a seed, cooperators under a seller); empty otherwise.
	colPadre string
	// colDetalle names the free-text column: plate for vehicles, licence for
	// drivers, tax id for clients, location for units, description for
	// services; empty otherwise.
	colDetalle string
}

var descriptores = map[Tipo]descriptor{
	TipoSemillera:  {tabla: "semilleras", colID: "id_semillera"},
	TipoCooperador: {tabla: "cooperadores", colID: "id_cooperador", colPadre: "id_semillera"},
	TipoConductor:  {tabla: "conductores", colID: "id_conductor", colDetalle: "licencia"},
	TipoVehiculo:   {tabla: "vehiculos", colID: "id_vehiculo", colDetalle: "placa"},
	TipoSemilla:    {tabla: "semillas", colID: "id_semilla"},
	TipoVariedad:   {tabla: "variedades", colID: "id_variedad", colPadre: "id_semilla"},
	TipoCategoria:  {tabla: "categorias", colID: "id_categoria"},
	TipoUnidad:     {tabla: "unidades", colID: "id_unidad", colDetalle: "ubicacion"},
	TipoCliente:    {tabla: "clientes", colID: "id_cliente", colDetalle: "nit"},
	TipoServicio:   {tabla: "servicios", colID: "id_servicio", colDetalle: "descripcion"},
}

// ValidTipo reports whether s names a known catalog.
func ValidTipo(s string) bool {
	_, ok := descriptores[Tipo(s)]
	return ok
}

// Entidad is one reference record. Padre and Detalle are only meaningful for
// catalogs whose descriptor declares those columns.
type Entidad struct {
	ID                 int64     `json:"id"`
	Nombre             string    `json:"nombre"`
	Detalle            *string   `json:"detalle,omitempty"`
	Padre              *int64    `json:"id_padre,omitempty"`
	Activo             bool      `json:"activo"`
	FechaCreacion      time.Time `json:"fecha_creacion"`
	FechaActualizacion time.Time `json:"fecha_actualizacion"`
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizarNombre lowercases, trims and strips diacritics so that name
// uniqueness survives accent variations.
func NormalizarNombre(nombre string) string {
	folded, _, err := transform.String(foldTransformer, nombre)
	if err != nil {
		folded = nombre
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
