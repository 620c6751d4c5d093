package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func queryParam(name, description, typ string, required bool) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      object{"type": typ},
	}
}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonResponse(description string, schema object) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{"schema": schema},
		},
	}
}

func errorResponse(description string) object {
	return jsonResponse(description, ref("Error"))
}

func number() object   { return object{"type": "number"} }
func integer() object  { return object{"type": "integer"} }
func str() object      { return object{"type": "string"} }
func boolean() object  { return object{"type": "boolean"} }
func nullable() object { return object{"type": "number", "nullable": true} }

func schemas() object {
	reading := object{
		"type": "object",
		"properties": object{
			"temperature_celsius": number(),
			"humidity":            number(),
			"pressure":            number(),
		},
	}
	condition := object{"type": "string", "enum": []string{"Sunny", "Cloudy", "Rainy", "Snowy"}}
	scale := object{"type": "string", "enum": []string{"Celsius", "Fahrenheit", "Kelvin"}}
	alert := object{
		"type": "object",
		"properties": object{
			"seq":                 integer(),
			"threshold_celsius":   number(),
			"temperature_celsius": number(),
			"message":             str(),
			"at":                  object{"type": "string", "format": "date-time"},
		},
	}

	return object{
		"Reading":   reading,
		"Condition": condition,
		"Scale":     scale,
		"Alert":     alert,
		"Error": object{
			"type": "object",
			"properties": object{
				"error":   str(),
				"message": str(),
				"code":    integer(),
			},
		},
		"CollectResult": object{
			"type": "object",
			"properties": object{
				"source":          object{"type": "string", "enum": []string{"API", "Sensor"}},
				"source_fallback": boolean(),
				"time":            str(),
				"reading":         ref("Reading"),
				"condition":       ref("Condition"),
				"persisted":       boolean(),
				"storage_error":   str(),
				"warnings":        object{"type": "array", "items": ref("Alert")},
			},
		},
		"Report": object{
			"type": "object",
			"properties": object{
				"temperature":   number(),
				"scale":         ref("Scale"),
				"label":         str(),
				"humidity":      number(),
				"pressure":      number(),
				"condition":     ref("Condition"),
				"collected":     boolean(),
				"text":          str(),
				"scale_warning": str(),
			},
		},
		"PersistedRow": object{
			"type": "object",
			"properties": object{
				"time":        str(),
				"temperature": number(),
				"humidity":    number(),
				"pressure":    number(),
			},
		},
		"Summary": object{
			"type": "object",
			"properties": object{
				"count":           integer(),
				"avg_temperature": nullable(),
				"min_temperature": nullable(),
				"max_temperature": nullable(),
				"avg_humidity":    nullable(),
				"avg_pressure":    nullable(),
				"condition":       ref("Condition"),
			},
		},
	}
}

func paths() object {
	return object{
		"/api/weather/collect": object{
			"post": object{
				"summary":     "Collect a reading",
				"description": "Draw a reading from the selected source, notify observers and store it under the current time. Unknown sources fall back to API. A storage failure leaves persisted=false; the reading is still current.",
				"parameters":  []object{queryParam("source", "API or Sensor (default: API)", "string", false)},
				"responses": object{
					"200": jsonResponse("Reading collected", ref("CollectResult")),
				},
			},
		},
		"/api/weather/observers": object{
			"post": object{
				"summary":     "Register a threshold observer",
				"description": "Warn whenever a new reading is below the threshold. The threshold is given in the selected scale and stored in Celsius.",
				"requestBody": object{
					"required": true,
					"content": object{
						"application/json": object{
							"schema": object{
								"type":     "object",
								"required": []string{"threshold"},
								"properties": object{
									"threshold": number(),
									"scale":     ref("Scale"),
								},
							},
						},
					},
				},
				"responses": object{
					"201": jsonResponse("Observer registered", object{
						"type": "object",
						"properties": object{
							"threshold":         number(),
							"scale":             ref("Scale"),
							"threshold_celsius": number(),
							"observers":         integer(),
							"scale_warning":     str(),
						},
					}),
					"400": errorResponse("Invalid request"),
				},
			},
		},
		"/api/weather": object{
			"get": object{
				"summary":    "Display the current reading",
				"parameters": []object{queryParam("scale", "Celsius, Fahrenheit or Kelvin (default: Celsius)", "string", false)},
				"responses": object{
					"200": jsonResponse("Current reading", ref("Report")),
				},
			},
		},
		"/api/weather/condition": object{
			"get": object{
				"summary": "Display the current condition",
				"responses": object{
					"200": jsonResponse("Current condition", object{
						"type": "object",
						"properties": object{
							"condition": ref("Condition"),
							"collected": boolean(),
							"text":      str(),
						},
					}),
				},
			},
		},
		"/api/weather/save": object{
			"post": object{
				"summary":     "Store the current reading",
				"description": "Store the current reading under the given time key, or under the current time.",
				"requestBody": object{
					"required": false,
					"content": object{
						"application/json": object{
							"schema": object{"type": "object", "properties": object{"time": str()}},
						},
					},
				},
				"responses": object{
					"201": jsonResponse("Reading stored", object{"type": "object", "properties": object{"time": str()}}),
					"400": errorResponse("No reading collected yet"),
					"503": errorResponse("Storage unavailable"),
				},
			},
		},
		"/api/weather/records": object{
			"get": object{
				"summary":     "Retrieve a stored reading",
				"description": "Return the first row stored under the time key. The current reading is not changed.",
				"parameters":  []object{queryParam("time", "Time key (YYYY-MM-DD HH:MM:SS)", "string", true)},
				"responses": object{
					"200": jsonResponse("Stored reading", object{
						"type": "object",
						"properties": object{
							"time":      str(),
							"reading":   ref("Reading"),
							"condition": ref("Condition"),
						},
					}),
					"400": errorResponse("Missing time"),
					"404": errorResponse("No reading stored under time"),
					"503": errorResponse("Storage unavailable"),
				},
			},
		},
		"/api/weather/records/recent": object{
			"get": object{
				"summary":    "List stored readings",
				"parameters": []object{queryParam("limit", "Rows to return (default: 100, max: 1000)", "integer", false)},
				"responses": object{
					"200": jsonResponse("Newest rows first", object{
						"type": "object",
						"properties": object{
							"data":  object{"type": "array", "items": ref("PersistedRow")},
							"count": integer(),
							"limit": integer(),
						},
					}),
					"503": errorResponse("Storage unavailable"),
				},
			},
		},
		"/api/weather/summary": object{
			"get": object{
				"summary": "Summarize stored readings",
				"responses": object{
					"200": jsonResponse("Aggregates over every stored row", ref("Summary")),
					"503": errorResponse("Storage unavailable"),
				},
			},
		},
		"/api/weather/undo": object{
			"post": object{
				"summary":     "Undo the latest collection",
				"description": "Restore the reading held before the latest collection. Observers are notified.",
				"responses": object{
					"200": jsonResponse("Restored reading in Celsius", ref("Report")),
					"409": errorResponse("Nothing to undo"),
				},
			},
		},
		"/api/weather/alerts": object{
			"get": object{
				"summary":    "Recent threshold warnings",
				"parameters": []object{queryParam("limit", "Warnings to return (default: all retained)", "integer", false)},
				"responses": object{
					"200": jsonResponse("Oldest first", object{
						"type":       "object",
						"properties": object{"data": object{"type": "array", "items": ref("Alert")}},
					}),
				},
			},
		},
		"/api/convert": object{
			"get": object{
				"summary": "Convert a temperature",
				"parameters": []object{
					queryParam("value", "Temperature to convert", "number", true),
					queryParam("from", "Source scale (default: Celsius)", "string", false),
					queryParam("to", "Target scale (default: Celsius)", "string", false),
				},
				"responses": object{
					"200": jsonResponse("Converted value", object{
						"type": "object",
						"properties": object{
							"value":         number(),
							"from":          ref("Scale"),
							"to":            ref("Scale"),
							"result":        number(),
							"label":         str(),
							"scale_warning": str(),
						},
					}),
					"400": errorResponse("Value is not a number"),
				},
			},
		},
		"/health": object{
			"get": object{
				"summary":     "Health check",
				"description": "Check if the API is running and the database is reachable",
				"responses": object{
					"200": jsonResponse("API is healthy", object{
						"type":       "object",
						"properties": object{"status": str(), "database": str(), "timestamp": str()},
					}),
					"503": jsonResponse("Database unreachable", object{
						"type":       "object",
						"properties": object{"status": str(), "database": str(), "timestamp": str()},
					}),
				},
			},
		},
		"/metrics": object{
			"get": object{
				"summary":     "Prometheus metrics",
				"description": "Prometheus metrics endpoint for monitoring",
				"responses": object{
					"200": object{
						"description": "Prometheus metrics in text format",
						"content": object{
							"text/plain": object{"schema": str()},
						},
					},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Weather Monitor API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Weather Monitor API",
			"description": "Collect weather readings, watch temperature thresholds and store readings by time",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths":      paths(),
		"components": object{"schemas": schemas()},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
