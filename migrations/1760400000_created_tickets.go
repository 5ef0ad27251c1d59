package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"createRule": null,
			"deleteRule": null,
			"fields": [
				{
					"autogeneratePattern": "[a-z0-9]{15}",
					"hidden": false,
					"id": "text3208210256",
					"max": 15,
					"min": 15,
					"name": "id",
					"pattern": "^[a-z0-9]+$",
					"presentable": false,
					"primaryKey": true,
					"required": true,
					"system": true,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text1997877400",
					"max": 64,
					"min": 1,
					"name": "code",
					"pattern": "",
					"presentable": true,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text2809058197",
					"max": 64,
					"min": 1,
					"name": "user_id",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text1001261735",
					"max": 64,
					"min": 1,
					"name": "event_id",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "number2683508278",
					"max": null,
					"min": 1,
					"name": "quantity",
					"onlyInt": true,
					"presentable": false,
					"required": true,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "number3257917790",
					"max": null,
					"min": 0,
					"name": "total_price_cents",
					"onlyInt": true,
					"presentable": false,
					"required": false,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "select2063623452",
					"maxSelect": 1,
					"name": "state",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": ["pending", "active", "scanned", "cancelled", "refunded", "expired"]
				},
				{
					"hidden": false,
					"id": "date1390848393",
					"max": "",
					"min": "",
					"name": "scanned_at",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "date"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text4171023307",
					"max": 128,
					"min": 0,
					"name": "scanned_by",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": false,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "number3556135396",
					"max": null,
					"min": 1,
					"name": "version",
					"onlyInt": true,
					"presentable": false,
					"required": true,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "date2990389176",
					"max": "",
					"min": "",
					"name": "created",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "date"
				},
				{
					"hidden": false,
					"id": "date3332085495",
					"max": "",
					"min": "",
					"name": "updated",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "date"
				}
			],
			"id": "pbc_tickets0001",
			"indexes": [
				"CREATE UNIQUE INDEX ` + "`idx_tickets_code`" + ` ON ` + "`tickets`" + ` (` + "`code`" + `)",
				"CREATE INDEX ` + "`idx_tickets_user_created`" + ` ON ` + "`tickets`" + ` (` + "`user_id`, `created`" + `)",
				"CREATE INDEX ` + "`idx_tickets_event_state`" + ` ON ` + "`tickets`" + ` (` + "`event_id`, `state`" + `)"
			],
			"listRule": null,
			"name": "tickets",
			"system": false,
			"type": "base",
			"updateRule": null,
			"viewRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pbc_tickets0001")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
