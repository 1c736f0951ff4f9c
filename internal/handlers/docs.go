package handlers

import (
	"encoding/json"
	"net/http"
)

func queryParam(name, description string, required bool, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      schema,
	}
}

func pathParam(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      map[string]string{"type": "string"},
	}
}

func jsonResponse(description string, schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": schema,
			},
		},
	}
}

func ref(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

var (
	examTrackSchema = map[string]interface{}{
		"type":    "string",
		"enum":    []string{"physics", "history"},
		"default": "physics",
	}
	langSchema = map[string]interface{}{
		"type":    "string",
		"enum":    []string{"en", "zh"},
		"default": "en",
	}
	errorResponses = map[string]interface{}{
		"400": jsonResponse("Invalid request", ref("Error")),
		"500": jsonResponse("Internal server error", ref("Error")),
	}
)

func withErrors(responses map[string]interface{}) map[string]interface{} {
	for code, resp := range errorResponses {
		if _, ok := responses[code]; !ok {
			responses[code] = resp
		}
	}
	return responses
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Admissions Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Admissions Platform API",
			"description": "Admission rank analytics: trend, prediction, volatility, risk and tiered recommendations",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Admissions Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/analysis/{school}/{major}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Analyze a program",
					"description": "Trend, predicted rank, volatility and optional risk for one school and major",
					"parameters": []map[string]interface{}{
						pathParam("school", "School name"),
						pathParam("major", "Major name"),
						queryParam("province", "Province (default: 广东)", false, map[string]interface{}{"type": "string", "default": "广东"}),
						queryParam("exam_track", "Exam track; exam_type and the Chinese labels are accepted", false, examTrackSchema),
						queryParam("student_rank", "Candidate rank; enables risk_assessment", false, map[string]interface{}{"type": "integer", "minimum": 1}),
						queryParam("lang", "Label language", false, langSchema),
					},
					"responses": withErrors(map[string]interface{}{
						"200": jsonResponse("Analysis result", ref("Analysis")),
						"404": jsonResponse("No admission history for the program", ref("Error")),
					}),
				},
			},
			"/api/recommend": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Recommend programs",
					"description": "Partition programs into rush, match and safety buckets for a candidate rank",
					"parameters": []map[string]interface{}{
						queryParam("lang", "Bucket key language", false, langSchema),
					},
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json":                  map[string]interface{}{"schema": ref("RecommendRequest")},
							"application/x-www-form-urlencoded": map[string]interface{}{"schema": ref("RecommendRequest")},
						},
					},
					"responses": withErrors(map[string]interface{}{
						"200": jsonResponse("Recommendation buckets", ref("Recommendation")),
					}),
				},
			},
			"/api/programs": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List programs",
					"description": "Distinct programs with their year coverage",
					"parameters": []map[string]interface{}{
						queryParam("province", "Filter by province", false, map[string]interface{}{"type": "string"}),
						queryParam("exam_track", "Filter by exam track", false, map[string]interface{}{"type": "string", "enum": []string{"physics", "history"}}),
						queryParam("school", "Case-insensitive school substring", false, map[string]interface{}{"type": "string"}),
						queryParam("page", "Page number (default: 1)", false, map[string]interface{}{"type": "integer", "default": 1}),
						queryParam("limit", "Records per page (default: 100, max: 1000)", false, map[string]interface{}{"type": "integer", "default": 100}),
					},
					"responses": withErrors(map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"data":        map[string]interface{}{"type": "array", "items": ref("Program")},
								"total":       map[string]string{"type": "integer"},
								"page":        map[string]string{"type": "integer"},
								"limit":       map[string]string{"type": "integer"},
								"total_pages": map[string]string{"type": "integer"},
							},
						}),
					}),
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check that the API and its database are reachable",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", ref("Health")),
						"503": jsonResponse("Database unreachable", ref("Health")),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"field":   map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
				"Analysis": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"school":     map[string]string{"type": "string"},
						"major":      map[string]string{"type": "string"},
						"province":   map[string]string{"type": "string"},
						"exam_track": map[string]string{"type": "string"},
						"historical_data": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"year":      map[string]string{"type": "integer"},
									"min_score": map[string]interface{}{"type": "integer", "nullable": true},
									"min_rank":  map[string]string{"type": "integer"},
								},
							},
						},
						"trend":             map[string]interface{}{"type": "string", "enum": []string{"rising", "falling", "stable"}},
						"trend_description": map[string]string{"type": "string"},
						"predicted_rank":    map[string]string{"type": "integer"},
						"predicted_range": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"min": map[string]string{"type": "integer"},
								"max": map[string]string{"type": "integer"},
							},
						},
						"volatility_level":  map[string]interface{}{"type": "string", "enum": []string{"low", "medium", "high"}},
						"volatility_value":  map[string]string{"type": "integer"},
						"volatility_stddev": map[string]string{"type": "number"},
						"risk_assessment":   map[string]interface{}{"type": "string", "nullable": true, "enum": []string{"low", "medium", "high"}},
						"years":             map[string]string{"type": "integer"},
					},
				},
				"RecommendRequest": map[string]interface{}{
					"type":     "object",
					"required": []string{"rank", "province", "exam_track"},
					"properties": map[string]interface{}{
						"rank":       map[string]interface{}{"type": "integer", "minimum": 1},
						"province":   map[string]string{"type": "string"},
						"exam_track": examTrackSchema,
					},
				},
				"Candidate": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"school":      map[string]string{"type": "string"},
						"major":       map[string]string{"type": "string"},
						"avg_rank":    map[string]string{"type": "integer"},
						"min_score":   map[string]string{"type": "integer"},
						"probability": map[string]string{"type": "integer"},
					},
				},
				"Recommendation": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"rank":           map[string]string{"type": "integer"},
						"province":       map[string]string{"type": "string"},
						"exam_track":     map[string]string{"type": "string"},
						"lookback_years": map[string]string{"type": "integer"},
						"rush":           map[string]interface{}{"type": "array", "items": ref("Candidate")},
						"match":          map[string]interface{}{"type": "array", "items": ref("Candidate")},
						"safety":         map[string]interface{}{"type": "array", "items": ref("Candidate")},
					},
				},
				"Program": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"school":     map[string]string{"type": "string"},
						"major":      map[string]string{"type": "string"},
						"province":   map[string]string{"type": "string"},
						"exam_track": map[string]string{"type": "string"},
						"years":      map[string]string{"type": "integer"},
						"first_year": map[string]string{"type": "integer"},
						"last_year":  map[string]string{"type": "integer"},
					},
				},
				"Health": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"status":    map[string]string{"type": "string"},
						"database":  map[string]string{"type": "string"},
						"timestamp": map[string]string{"type": "string", "format": "date-time"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
