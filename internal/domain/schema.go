package domain

// JSON Schemas declared to the provider so annotation and completion output
// are constrained to the record shapes above. Kept next to the records they
// describe; a field added to a record must be added here too.

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func stringList(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

// ResumeDataSchema is the document-annotation target schema for ResumeData.
func ResumeDataSchema() map[string]any {
	education := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"degree":         stringProp("Nom du diplôme"),
			"institution":    stringProp("Nom de l'établissement"),
			"year":           stringProp("Année d'obtention"),
			"field_of_study": stringProp("Domaine d'études"),
		},
		"required": []string{"degree", "institution"},
	}
	experience := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"position":     stringProp("Titre du poste"),
			"company":      stringProp("Nom de l'entreprise"),
			"start_date":   stringProp("Date de début"),
			"end_date":     stringProp("Date de fin (ou 'Présent')"),
			"description":  stringProp("Description des responsabilités"),
			"achievements": stringList("Réalisations clés"),
		},
		"required": []string{"position", "company"},
	}
	project := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":         stringProp("Nom du projet"),
			"description":  stringProp("Description du projet"),
			"technologies": stringList("Technologies utilisées"),
			"role":         stringProp("Rôle dans le projet"),
			"url":          stringProp("URL du projet"),
		},
		"required": []string{"name"},
	}
	language := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"language": stringProp("Nom de la langue"),
			"level":    stringProp("Niveau (ex: Courant, Bilingue, Notions)"),
		},
		"required": []string{"language"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"education":       map[string]any{"type": "array", "items": education, "description": "Formations académiques"},
			"work_experience": map[string]any{"type": "array", "items": experience, "description": "Expériences professionnelles"},
			"projects":        map[string]any{"type": "array", "items": project, "description": "Projets réalisés"},
			"competences":     stringList("Compétences techniques"),
			"tools":           stringList("Outils et frameworks maîtrisés"),
			"soft_skills":     stringList("Compétences interpersonnelles"),
			"languages":       map[string]any{"type": "array", "items": language, "description": "Langues parlées"},
			"certifications":  stringList("Certifications professionnelles"),
			"summary":         stringProp("Résumé professionnel"),
		},
	}
}

// ScoringResultSchema is the chat-completion target schema for ScoringResult.
func ScoringResultSchema() map[string]any {
	score := map[string]any{"type": "number", "minimum": 0, "maximum": 100}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score_global":         score,
			"matching_competences": score,
			"matching_experience":  score,
			"matching_diploma":     score,
			"justification":        stringProp("Justification détaillée du scoring en français"),
			"recommendation": map[string]any{
				"type": "string",
				"enum": []string{RecommendationExcellent, RecommendationBon, RecommendationMoyen, RecommendationFaible},
			},
			"strengths":      stringList("Points forts du candidat"),
			"weaknesses":     stringList("Points faibles du candidat"),
			"missing_skills": stringList("Compétences requises mais absentes du CV"),
		},
		"required": []string{"score_global", "matching_competences", "matching_experience", "matching_diploma", "justification", "recommendation"},
	}
}
