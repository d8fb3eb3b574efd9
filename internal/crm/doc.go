// Package crm persists the travel agency's business records: contacts,
// tasks, and quotes. It is the persistence collaborator the automation
// action handlers mutate, and the admin API reads.
//
// Contact statuses follow the agency pipeline (NUEVO, INTERESADO,
// COTIZADO, CLIENTE); task priorities and statuses use the same
// Spanish-language vocabulary the agency staff see in the UI.
package crm
