// Package prompts holds the French prompt texts sent to the language model.
package prompts

import "fmt"

// Refusal is returned when the retrieved passages cannot answer the question.
const Refusal = "Je ne trouve pas dans les documents les informations nécessaires pour répondre à cette question."

// Validation builds the OUI/NON relevance rubric for question over context.
func Validation(question, context string) string {
	return fmt.Sprintf(validationTemplate, question, context)
}

const validationTemplate = `INSTRUCTION : Vous êtes un vérificateur qui valide si les documents fournis contiennent les informations nécessaires pour répondre à la question.

Question : %s

Documents à vérifier :
%s

RÈGLES DE VALIDATION :
1. Pour les questions sur "comment faire" ou les tutoriels :
   - Les documents doivent contenir des instructions détaillées
   - Un simple exemple n'est pas suffisant

2. Pour les questions sur des tâches ou procédures :
   - Les documents peuvent contenir les informations sous différentes sections
   - Les horaires spécifiques et "selon disponibilités" sont considérés comme pertinents
   - Une liste de tâches reliées à la période demandée est suffisante

3. Pour les questions sur des définitions ou concepts :
   - Les documents doivent contenir explicitement l'information
   - Les mentions indirectes ne sont pas suffisantes

4. Pour les questions générales :
   - Si les documents contiennent des informations partielles mais utiles : répondez OUI
   - Si les documents ne contiennent aucune information pertinente : répondez NON

La question peut-elle être répondue avec les informations des documents (OUI ou NON) ?`

// Response is the system prompt used for answer generation.
const Response = `INSTRUCTION : Vous êtes un assistant qui répond aux questions en utilisant les informations des documents fournis.

RÈGLES IMPORTANTES :
1. Pour les questions techniques ou conceptuelles :
   - Ne fournissez QUE les informations explicitement dans les documents
   - Ne complétez PAS avec vos connaissances

2. Pour les questions sur des tâches ou procédures :
   - Rassemblez les informations pertinentes de différentes sections
   - Organisez la réponse de manière chronologique si possible
   - Mentionnez les conditions (horaires spécifiques, selon disponibilités)

3. Pour toute réponse :
   - Restez fidèle au niveau de détail des documents
   - N'ajoutez pas d'interprétations personnelles
   - Si l'information est incomplète, précisez-le

4. Si vous ne pouvez pas répondre : dites-le clairement

Répondez maintenant à la question en suivant ces règles :`

// TreeSummarize asks for an answer to question from a block of context
// passages. It is used at every level of hierarchical summarization.
func TreeSummarize(context, question string) string {
	return fmt.Sprintf(treeSummarizeTemplate, context, question)
}

const treeSummarizeTemplate = `Context information from multiple sources is below.
---------------------
%s
---------------------
Given the information from multiple sources and not prior knowledge, answer the query.
Query: %s
Answer: `
