package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Null rules restrict every record API action, reads and writes alike, to
// superusers. Regular entries come from the ticket service only.
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
					"id": "text2094649422",
					"max": 15,
					"min": 1,
					"name": "ticket_id",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "select1470615694",
					"maxSelect": 1,
					"name": "from_state",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": ["pending", "active", "scanned", "cancelled", "refunded", "expired"]
				},
				{
					"hidden": false,
					"id": "select3982413940",
					"maxSelect": 1,
					"name": "to_state",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": ["pending", "active", "scanned", "cancelled", "refunded", "expired"]
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text2466816812",
					"max": 128,
					"min": 1,
					"name": "actor",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "date2726420033",
					"max": "",
					"min": "",
					"name": "at",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "date"
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
				}
			],
			"id": "pbc_tickethist01",
			"indexes": [
				"CREATE INDEX ` + "`idx_ticket_history_ticket`" + ` ON ` + "`ticket_history`" + ` (` + "`ticket_id`, `at`" + `)"
			],
			"listRule": null,
			"name": "ticket_history",
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
		collection, err := app.FindCollectionByNameOrId("pbc_tickethist01")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
