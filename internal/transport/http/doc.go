// Package http implements the HTTP handlers of the dashboard service. It is a
// thin layer between the chi router and the services: handlers parse and
// validate the request, call a service and render the result.
//
// # Routes
//
//	GET    /api/health[?verbose=true], /api/health/ready, /api/health/live, /api/version
//	GET    /api/datasets
//	POST   /api/datasets                          multipart: file, name
//	GET    /api/datasets/{id}                     id is a uuid or "latest"
//	DELETE /api/datasets/{id}
//	GET    /api/datasets/{id}/dashboard?start=&end=&charts=
//	GET    /api/datasets/{id}/charts
//	GET    /api/datasets/{id}/charts/{chartID}[.png|.csv]
//	GET    /api/datasets/{id}/export.xlsx
//	GET    /                                      dashboard page
//
// # Error Handling
//
// Every failure goes through errors.ErrorHandler and is written as an
// RFC 7807 problem:
//
//	{
//	    "type": "/errors/dataset/not-found",
//	    "title": "Dataset Not Found",
//	    "status": 404,
//	    "detail": "dataset not found",
//	    "instance": "/api/datasets/6f1c2f0e-8a3b-4c1d-9e2f-0a1b2c3d4e5f",
//	    "error_code": "DATASET_NOT_FOUND",
//	    "trace_id": "..."
//	}
//
// Downloads are rendered into memory before the status line is written, so a
// failed render still produces a problem response.
package http
