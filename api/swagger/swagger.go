package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academia API",
        "description": "Class scheduling, QR check-in and attendance backend for gyms and academies",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Turmas", "description": "Class templates and recurrence defaults"},
        {"name": "Aulas", "description": "Dated class instances and QR issuance"},
        {"name": "Checkin", "description": "Student check-in intake"},
        {"name": "Presencas", "description": "Attendance review and decisions"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/turmas": {
            "get": {
                "tags": ["Turmas"],
                "summary": "List turmas",
                "parameters": [
                    {"name": "includeDeleted", "in": "query", "type": "boolean"},
                    {"name": "onlyDeleted", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Turmas"],
                "summary": "Create turma",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTurmaRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate name", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/turmas/{id}": {
            "get": {
                "tags": ["Turmas"],
                "summary": "Get turma",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Turmas"],
                "summary": "Update turma",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTurmaRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Turmas"],
                "summary": "Soft-delete turma",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "No content"},
                    "409": {"description": "Turma has future aulas", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/turmas/{id}/restore": {
            "post": {
                "tags": ["Turmas"],
                "summary": "Restore turma",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not deleted or name taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas": {
            "get": {
                "tags": ["Aulas"],
                "summary": "List aulas",
                "parameters": [
                    {"name": "turmaId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["AGENDADA", "ENCERRADA", "CANCELADA"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "includeDeleted", "in": "query", "type": "boolean"},
                    {"name": "onlyDeleted", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Aulas"],
                "summary": "Create aula",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAulaRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Start-time collision", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas/hoje": {
            "get": {
                "tags": ["Aulas"],
                "summary": "List today's aulas",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas/lote": {
            "post": {
                "tags": ["Aulas"],
                "summary": "Create aulas over a date range",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAulasLoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created/skipped summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas/{id}/qrcode": {
            "post": {
                "tags": ["Aulas"],
                "summary": "Issue QR token",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Token and expiry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Aula not scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas/{id}/cancelar": {
            "post": {
                "tags": ["Aulas"],
                "summary": "Cancel aula",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas/{id}/encerrar": {
            "post": {
                "tags": ["Aulas"],
                "summary": "End aula",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Aula cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas/{id}/presencas": {
            "get": {
                "tags": ["Presencas"],
                "summary": "Attendance sheet of one aula",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/aulas/{id}/presencas/export": {
            "get": {
                "tags": ["Presencas"],
                "summary": "Export attendance sheet",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "formato", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/checkin/disponiveis": {
            "get": {
                "tags": ["Checkin"],
                "summary": "Today's classes available for check-in",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/checkin": {
            "post": {
                "tags": ["Checkin"],
                "summary": "Register a check-in",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCheckinRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "QR invalid/expired, duplicate or cancelled aula", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/presencas/pendentes": {
            "get": {
                "tags": ["Presencas"],
                "summary": "List pending attendance records",
                "parameters": [
                    {"name": "turmaId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/presencas/{id}/decidir": {
            "post": {
                "tags": ["Presencas"],
                "summary": "Decide one pending record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecidePresencaRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already decided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/presencas/decidir-lote": {
            "post": {
                "tags": ["Presencas"],
                "summary": "Decide several pending records",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideLoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated/ignored summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/presencas/alunos/{alunoId}/historico": {
            "get": {
                "tags": ["Presencas"],
                "summary": "Student attendance history",
                "parameters": [
                    {"name": "alunoId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateTurmaRequest": {
            "type": "object",
            "required": ["nome", "tipoTreinoId", "diasSemana", "horarioPadrao"],
            "properties": {
                "nome": {"type": "string"},
                "tipoTreinoId": {"type": "string"},
                "diasSemana": {"type": "array", "items": {"type": "integer"}},
                "horarioPadrao": {"type": "string", "example": "19:00"},
                "instrutorPadraoId": {"type": "string"}
            }
        },
        "UpdateTurmaRequest": {
            "type": "object",
            "properties": {
                "nome": {"type": "string"},
                "tipoTreinoId": {"type": "string"},
                "diasSemana": {"type": "array", "items": {"type": "integer"}},
                "horarioPadrao": {"type": "string"},
                "instrutorPadraoId": {"type": "string"}
            }
        },
        "CreateAulaRequest": {
            "type": "object",
            "required": ["turmaId", "dataInicio", "dataFim"],
            "properties": {
                "turmaId": {"type": "string"},
                "dataInicio": {"type": "string", "format": "date-time"},
                "dataFim": {"type": "string", "format": "date-time"},
                "status": {"type": "string", "enum": ["AGENDADA", "ENCERRADA", "CANCELADA"]}
            }
        },
        "CreateAulasLoteRequest": {
            "type": "object",
            "required": ["turmaId", "dataInicio", "dataFim"],
            "properties": {
                "turmaId": {"type": "string"},
                "dataInicio": {"type": "string", "format": "date"},
                "dataFim": {"type": "string", "format": "date"},
                "diasSemana": {"type": "array", "items": {"type": "integer"}},
                "horario": {"type": "string", "example": "19:00"},
                "duracaoMinutos": {"type": "integer", "example": 90}
            }
        },
        "CreateCheckinRequest": {
            "type": "object",
            "required": ["aulaId", "tipo"],
            "properties": {
                "aulaId": {"type": "string"},
                "tipo": {"type": "string", "enum": ["MANUAL", "QR"]},
                "qrToken": {"type": "string"}
            }
        },
        "DecidePresencaRequest": {
            "type": "object",
            "required": ["decisao"],
            "properties": {
                "decisao": {"type": "string", "enum": ["APROVAR", "FALTA", "JUSTIFICAR"]},
                "observacao": {"type": "string"}
            }
        },
        "DecideLoteRequest": {
            "type": "object",
            "required": ["ids", "decisao"],
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}},
                "decisao": {"type": "string", "enum": ["APROVAR", "FALTA", "JUSTIFICAR"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
