package catalog

const deadpoolResponse = `{
	"code": 200,
	"status": "ok",
	"copyright": "pk",
	"attributionText": "qk",
	"attributionHTML": "rk",
	"data": {
		"offset": 0,
		"limit": 0,
		"total": 1,
		"count": 1,
		"results": [
			{
				"id": 1009268,
				"name": "Deadpool",
				"description": "",
				"modified": "2013-10-18T17:33:26-0400",
				"thumbnail": {
					"path": "http://i.annihil.us/u/prod/marvel/i/mg/9/90/5261a86cacb99",
					"extension": "jpg"
				},
				"resourceURI": "http://gateway.marvel.com/v1/public/characters/1009268"
			}
		]
	}
}`

const emptyResponse = `{
	"code": 200,
	"status": "ok",
	"data": {"offset": 0, "limit": 20, "total": 0, "count": 0, "results": []}
}`

const invalidCredentialsResponse = `{"code":"InvalidCredentials","message":"The passed API key is invalid."}`
